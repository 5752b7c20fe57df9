// File: core/reg/field.go
// Package reg implements typed bit-field access to 32-bit hardware registers.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// A Register describes one hardware word as one or more layouts of named
// fields. A View binds a Register to a word in memory and to the access token
// that decides how mutations synchronize.

package reg

import (
	"fmt"

	"github.com/momentics/hioload-rt/api"
)

// Field addresses a bit range of a register under one layout.
type Field struct {
	Name    string
	Offset  uint8
	Width   uint8
	variant uint8
	reg     *Register
}

// Mask returns the in-place mask of the field.
func (f Field) Mask() uint32 {
	return fieldMask(f.Width) << f.Offset
}

// Max returns the largest value the field can hold.
func (f Field) Max() uint32 {
	return fieldMask(f.Width)
}

// Whole reports whether the field spans the entire word.
func (f Field) Whole() bool {
	return f.Offset == 0 && f.Width == 32
}

// Fits reports whether v is representable in the field.
func (f Field) Fits(v uint32) bool {
	return f.Width >= 32 || v < 1<<f.Width
}

func fieldMask(width uint8) uint32 {
	if width >= 32 {
		return ^uint32(0)
	}
	return 1<<width - 1
}

// FieldSpec declares a field in a layout.
type FieldSpec struct {
	Name   string
	Offset uint8
	Width  uint8
}

// Layout is one interpretation of a register word.
type Layout struct {
	Tag    string
	Fields []FieldSpec
}

// Register is the immutable description of one register.
type Register struct {
	Name     string
	Reset    uint32
	Disjoint bool // fields of one layout must not be accessed under another
	layouts  []layout
}

type layout struct {
	tag    string
	fields []Field
}

// NewRegister validates layouts and builds the register description. Fields of
// one layout must not overlap; fields of different layouts may.
func NewRegister(name string, reset uint32, disjoint bool, layouts ...Layout) (*Register, error) {
	if len(layouts) == 0 {
		return nil, fmt.Errorf("reg %s: no layout: %w", name, api.ErrInvalidArgument)
	}
	if len(layouts) > 255 {
		return nil, fmt.Errorf("reg %s: %d layouts: %w", name, len(layouts), api.ErrInvalidArgument)
	}
	r := &Register{Name: name, Reset: reset, Disjoint: disjoint}
	tags := make(map[string]bool, len(layouts))
	for i, l := range layouts {
		if tags[l.Tag] {
			return nil, fmt.Errorf("reg %s: variant %q declared twice: %w", name, l.Tag, api.ErrInvalidArgument)
		}
		tags[l.Tag] = true

		var used uint32
		names := make(map[string]bool, len(l.Fields))
		fields := make([]Field, 0, len(l.Fields))
		for _, fs := range l.Fields {
			if fs.Width == 0 || int(fs.Offset)+int(fs.Width) > 32 {
				return nil, fmt.Errorf("reg %s.%s: bits [%d,+%d) outside word: %w",
					name, fs.Name, fs.Offset, fs.Width, api.ErrInvalidArgument)
			}
			if names[fs.Name] {
				return nil, fmt.Errorf("reg %s.%s: field declared twice: %w", name, fs.Name, api.ErrInvalidArgument)
			}
			names[fs.Name] = true
			f := Field{Name: fs.Name, Offset: fs.Offset, Width: fs.Width, variant: uint8(i), reg: r}
			if used&f.Mask() != 0 {
				return nil, fmt.Errorf("reg %s.%s: overlaps another field of %q: %w",
					name, fs.Name, l.Tag, api.ErrInvalidArgument)
			}
			used |= f.Mask()
			fields = append(fields, f)
		}
		r.layouts = append(r.layouts, layout{tag: l.Tag, fields: fields})
	}
	return r, nil
}

// Single builds a register with one untagged layout.
func Single(name string, reset uint32, fields ...FieldSpec) (*Register, error) {
	return NewRegister(name, reset, false, Layout{Fields: fields})
}

// Variants returns the layout tags in declaration order.
func (r *Register) Variants() []string {
	out := make([]string, len(r.layouts))
	for i, l := range r.layouts {
		out[i] = l.tag
	}
	return out
}

// Field looks a field up by layout tag and name.
func (r *Register) Field(tag, name string) (Field, error) {
	i, err := r.variant(tag)
	if err != nil {
		return Field{}, err
	}
	for _, f := range r.layouts[i].fields {
		if f.Name == name {
			return f, nil
		}
	}
	return Field{}, fmt.Errorf("reg %s: field %q in %q: %w", r.Name, name, tag, api.ErrNotFound)
}

// Fields returns the fields of the layout tagged tag.
func (r *Register) Fields(tag string) ([]Field, error) {
	i, err := r.variant(tag)
	if err != nil {
		return nil, err
	}
	return append([]Field(nil), r.layouts[i].fields...), nil
}

func (r *Register) variant(tag string) (int, error) {
	for i, l := range r.layouts {
		if l.tag == tag {
			return i, nil
		}
	}
	return 0, fmt.Errorf("reg %s: variant %q: %w", r.Name, tag, api.ErrNotFound)
}
