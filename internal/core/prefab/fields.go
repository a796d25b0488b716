package prefab

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/system"
)

// Aggregate data is a struct whose exported fields are themselves Data.
// It implements Data by delegating to the helpers below:
//
//	type Scene struct {
//		Position *prefab.Component[Position] `yaml:"position"`
//		Light    *LightData                  `yaml:"light"`
//		Shape    ShapeChoice                 `yaml:"shape" prefab:"oneof"`
//	}
//
//	func (s *Scene) AddToEntity(e ecs.Entity, w *ecs.World, es []ecs.Entity) error {
//		return prefab.AddFields(s, e, w, es)
//	}
//	func (*Scene) Access() system.Access { return prefab.FieldsAccess[Scene]() }
//
// Data fields are pointers to Data implementations (nil means absent) or
// struct values whose pointer implements Data. A field tagged
// prefab:"oneof" is a struct of pointer variants of which at most one may be
// set. Fields tagged prefab:"-" and fields of interface type are ignored.
// A data type that reaches itself through its data fields fails validation
// with ErrRecursiveData.

var dataType = reflect.TypeFor[Data]()

type dataField struct {
	name   string
	index  []int
	addr   bool
	access system.Access
}

func (f dataField) value(v reflect.Value) (any, bool) {
	fv := v.FieldByIndex(f.index)
	if f.addr {
		return fv.Addr().Interface(), true
	}
	if fv.IsNil() {
		return nil, false
	}
	return fv.Interface(), true
}

type oneofGroup struct {
	name     string
	index    []int
	variants []dataField
	access   system.Access
}

// selected returns the set variant, if any.
func (g oneofGroup) selected(v reflect.Value) (any, string, error) {
	gv := v.FieldByIndex(g.index)
	if gv.Kind() == reflect.Pointer {
		if gv.IsNil() {
			return nil, "", nil
		}
		gv = gv.Elem()
	}
	var (
		found any
		name  string
	)
	for _, variant := range g.variants {
		d, ok := variant.value(gv)
		if !ok {
			continue
		}
		if found != nil {
			return nil, "", fmt.Errorf("%w: %s has %s and %s", ErrMultipleVariants, g.name, name, variant.name)
		}
		found, name = d, g.name+"."+variant.name
	}
	return found, name, nil
}

type plan struct {
	fields []dataField
	groups []oneofGroup
	access system.Access
	err    error
}

var plans sync.Map

func planOf(t reflect.Type) *plan {
	if p, ok := plans.Load(t); ok {
		return p.(*plan)
	}
	var p *plan
	if err := cycleOf(t); err != nil {
		p = &plan{err: err}
	} else {
		p = buildPlan(t)
	}
	actual, _ := plans.LoadOrStore(t, p)
	return actual.(*plan)
}

type nested struct {
	name string
	typ  reflect.Type
}

// nestedData lists the struct types behind t's data fields and oneof
// variants. It only inspects types, so it never calls Access on them.
func nestedData(t reflect.Type) []nested {
	var out []nested
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("prefab")
		if !sf.IsExported() || tag == "-" {
			continue
		}
		if tag != "oneof" {
			if elem, ok := dataStruct(sf.Type); ok {
				out = append(out, nested{sf.Name, elem})
			}
			continue
		}
		gt := sf.Type
		if gt.Kind() == reflect.Pointer {
			gt = gt.Elem()
		}
		if gt.Kind() != reflect.Struct {
			continue
		}
		for j := 0; j < gt.NumField(); j++ {
			vf := gt.Field(j)
			if !vf.IsExported() || vf.Tag.Get("prefab") == "-" {
				continue
			}
			if elem, ok := dataStruct(vf.Type); ok {
				out = append(out, nested{sf.Name + "." + vf.Name, elem})
			}
		}
	}
	return out
}

func dataStruct(ft reflect.Type) (reflect.Type, bool) {
	switch {
	case ft.Kind() == reflect.Pointer && ft.Implements(dataType) && ft.Elem().Kind() == reflect.Struct:
		return ft.Elem(), true
	case ft.Kind() == reflect.Struct && reflect.PointerTo(ft).Implements(dataType):
		return ft, true
	}
	return nil, false
}

// cycleOf reports the first data type reachable from t that contains
// itself.
func cycleOf(t reflect.Type) error {
	var (
		onPath = map[reflect.Type]bool{}
		done   = map[reflect.Type]bool{}
		walk   func(t reflect.Type, path string) error
	)
	walk = func(t reflect.Type, path string) error {
		if done[t] {
			return nil
		}
		if onPath[t] {
			return fmt.Errorf("%w: %s contains itself through %s", ErrRecursiveData, t, path)
		}
		onPath[t] = true
		for _, n := range nestedData(t) {
			next := n.name
			if path != "" {
				next = path + "." + n.name
			}
			if err := walk(n.typ, next); err != nil {
				return err
			}
		}
		delete(onPath, t)
		done[t] = true
		return nil
	}
	return walk(t, "")
}

func buildPlan(t reflect.Type) *plan {
	p := &plan{}
	type unit struct {
		name   string
		access system.Access
	}
	var (
		units []unit
		errs  []error
	)

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("prefab")
		if !sf.IsExported() || tag == "-" {
			continue
		}
		if tag == "oneof" {
			g, err := buildGroup(t, sf)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			p.groups = append(p.groups, g)
			units = append(units, unit{g.name, g.access})
			continue
		}
		f, ok, err := fieldOf(t, sf)
		if err != nil {
			errs = append(errs, err)
		}
		if !ok {
			continue
		}
		p.fields = append(p.fields, f)
		units = append(units, unit{f.name, f.access})
	}

	for i := range units {
		p.access = p.access.Union(units[i].access)
		for j := i + 1; j < len(units); j++ {
			if c := writeOverlap(units[i].access, units[j].access); c != nil {
				errs = append(errs, &ConflictError{Type: t, First: units[i].name, Second: units[j].name, Component: c})
			}
		}
	}
	p.err = errors.Join(errs...)
	return p
}

// fieldOf recognises a Data field and validates nested aggregates.
func fieldOf(owner reflect.Type, sf reflect.StructField) (dataField, bool, error) {
	f := dataField{name: sf.Name, index: sf.Index}
	var elem reflect.Type
	switch ft := sf.Type; {
	case ft.Kind() == reflect.Pointer && ft.Implements(dataType):
		f.access = reflect.Zero(ft).Interface().(Data).Access()
		elem = ft.Elem()
	case ft.Kind() == reflect.Struct && reflect.PointerTo(ft).Implements(dataType):
		f.access = reflect.New(ft).Interface().(Data).Access()
		f.addr = true
		elem = ft
	default:
		return f, false, nil
	}
	if elem.Kind() != reflect.Struct {
		return f, true, nil
	}
	return f, true, nestedErr(owner, sf.Name, planOf(elem).err)
}

func buildGroup(owner reflect.Type, sf reflect.StructField) (oneofGroup, error) {
	g := oneofGroup{name: sf.Name, index: sf.Index}
	gt := sf.Type
	if gt.Kind() == reflect.Pointer {
		gt = gt.Elem()
	}
	if gt.Kind() != reflect.Struct {
		return g, fmt.Errorf("%w: %s.%s is %s", ErrInvalidOneOf, owner, sf.Name, sf.Type)
	}
	var errs []error
	for i := 0; i < gt.NumField(); i++ {
		vf := gt.Field(i)
		if !vf.IsExported() || vf.Tag.Get("prefab") == "-" {
			continue
		}
		if vf.Type.Kind() != reflect.Pointer || !vf.Type.Implements(dataType) {
			errs = append(errs, fmt.Errorf("%w: %s.%s.%s is %s", ErrInvalidOneOf, owner, sf.Name, vf.Name, vf.Type))
			continue
		}
		v := dataField{
			name:   vf.Name,
			index:  vf.Index,
			access: reflect.Zero(vf.Type).Interface().(Data).Access(),
		}
		if elem := vf.Type.Elem(); elem.Kind() == reflect.Struct {
			if err := nestedErr(owner, sf.Name+"."+vf.Name, planOf(elem).err); err != nil {
				errs = append(errs, err)
			}
		}
		g.variants = append(g.variants, v)
		g.access = g.access.Union(v.access)
	}
	return g, errors.Join(errs...)
}

func nestedErr(owner reflect.Type, field string, err error) error {
	if err == nil {
		return nil
	}
	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return conflict.prefixed(owner, field)
	}
	return fmt.Errorf("%s: %w", field, err)
}

// writeOverlap returns a type written by both a and b.
func writeOverlap(a, b system.Access) reflect.Type {
	for _, t := range a.Writes() {
		if b.Mode(t) == system.ModeWrite {
			return t
		}
	}
	return nil
}

func structValue(d any) (reflect.Value, *plan) {
	v := reflect.ValueOf(d)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}, nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return reflect.Value{}, nil
	}
	return v, planOf(v.Type())
}

// AddFields calls AddToEntity on every set data field of the struct d
// points to, in declaration order, then on the chosen variant of every
// oneof group. More than one set variant fails with ErrMultipleVariants.
func AddFields(d any, e ecs.Entity, w *ecs.World, entities []ecs.Entity) error {
	v, p := structValue(d)
	if p == nil {
		return nil
	}
	if errors.Is(p.err, ErrRecursiveData) {
		return p.err
	}
	for _, f := range p.fields {
		data, ok := f.value(v)
		if !ok {
			continue
		}
		if err := data.(Data).AddToEntity(e, w, entities); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	for _, g := range p.groups {
		data, name, err := g.selected(v)
		if err != nil {
			return err
		}
		if data == nil {
			continue
		}
		if err := data.(Data).AddToEntity(e, w, entities); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

// TriggerFields calls TriggerSubLoading on every set field that implements
// SubAssetLoader and reports whether any of them started a load.
func TriggerFields(d any, progress *asset.ProgressCounter, w *ecs.World) (bool, error) {
	v, p := structValue(d)
	if p == nil {
		return false, nil
	}
	triggered := false
	trigger := func(name string, data any) error {
		loader, ok := data.(SubAssetLoader)
		if !ok {
			return nil
		}
		started, err := loader.TriggerSubLoading(progress, w)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		triggered = triggered || started
		return nil
	}
	for _, f := range p.fields {
		if data, ok := f.value(v); ok {
			if err := trigger(f.name, data); err != nil {
				return triggered, err
			}
		}
	}
	for _, g := range p.groups {
		data, name, err := g.selected(v)
		if err != nil {
			return triggered, err
		}
		if data != nil {
			if err := trigger(name, data); err != nil {
				return triggered, err
			}
		}
	}
	return triggered, nil
}

// FieldsAccess is the union of the accesses of S's data fields.
func FieldsAccess[S any]() system.Access {
	t := reflect.TypeFor[S]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return system.Access{}
	}
	return planOf(t).access
}

// Validate checks that T's data fields, nested ones included, never write
// the same component type twice. Variants of one oneof group are exclusive
// and only checked against the fields around the group.
func Validate[T Data]() error {
	t := reflect.TypeFor[T]()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return planOf(t).err
}
