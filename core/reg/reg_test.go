package reg

import (
	"errors"
	"sync"
	"testing"
	"testing/quick"

	"github.com/momentics/hioload-rt/api"
	"github.com/momentics/hioload-rt/control"
	"github.com/momentics/hioload-rt/core/token"
)

func claim(t *testing.T, kind token.Kind) token.Token {
	t.Helper()
	r, err := token.NewRegistry(&control.Counters{}, "PERIPH")
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if kind == token.Unique {
		tok, err := r.ClaimUnique("PERIPH")
		if err != nil {
			t.Fatal(err)
		}
		return tok
	}
	tok, err := r.ClaimShared("PERIPH")
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func mustRegister(t *testing.T, fields ...FieldSpec) *Register {
	t.Helper()
	r, err := Single("CR", 0, fields...)
	if err != nil {
		t.Fatalf("Single: %v", err)
	}
	return r
}

func TestStoreBits3BitModeOn0xFFGives0xDF(t *testing.T) {
	r := mustRegister(t,
		FieldSpec{Name: "MODE", Offset: 4, Width: 3},
		FieldSpec{Name: "NIBBLE", Offset: 8, Width: 4},
	)
	word := uint32(0xFF)
	v, err := NewView(&word, r, claim(t, token.Unique), Options{})
	if err != nil {
		t.Fatal(err)
	}
	mode, _ := r.Field("", "MODE")
	if err := v.StoreBits(mode, 5); err != nil {
		t.Fatalf("StoreBits: %v", err)
	}
	// bits 4..6 take 0b101; bit 7 and the low nibble keep their ones.
	if word != 0xDF {
		t.Errorf("word = %#x, want 0xdf", word)
	}
	got, err := v.LoadBits(mode)
	if err != nil || got != 5 {
		t.Errorf("LoadBits = %d, %v; want 5", got, err)
	}
}

func TestStoreBits4BitFieldOn0xFFGives0x5F(t *testing.T) {
	wide, _ := NewRegister("CR2", 0, false, Layout{Fields: []FieldSpec{{Name: "F", Offset: 4, Width: 4}}})
	word := uint32(0xFF)
	wv, _ := NewView(&word, wide, claim(t, token.Unique), Options{})
	f, _ := wide.Field("", "F")
	if err := wv.StoreBits(f, 5); err != nil || word != 0x5F {
		t.Errorf("4-bit store: word = %#x, err %v; want 0x5f", word, err)
	}
}

func TestStoreBitsOutOfRange(t *testing.T) {
	r := mustRegister(t, FieldSpec{Name: "MODE", Offset: 4, Width: 3})
	word := uint32(0x12345678)
	v, _ := NewView(&word, r, claim(t, token.Shared), Options{Atomics: true})
	mode, _ := r.Field("", "MODE")
	if err := v.StoreBits(mode, 8); !errors.Is(err, api.ErrOutOfRange) {
		t.Errorf("got %v, want ErrOutOfRange", err)
	}
	if word != 0x12345678 {
		t.Errorf("rejected store wrote %#x", word)
	}
}

func TestStoreBitsProperty(t *testing.T) {
	for _, mode := range []struct {
		name    string
		kind    token.Kind
		atomics bool
	}{
		{"unique", token.Unique, false},
		{"shared-atomics", token.Shared, true},
		{"shared-masked", token.Shared, false},
	} {
		tok := claim(t, mode.kind)
		prop := func(initial, value uint32, offset, width uint8) bool {
			width = width%32 + 1
			offset %= 33 - width
			r, err := Single("R", 0, FieldSpec{Name: "F", Offset: offset, Width: width})
			if err != nil {
				return false
			}
			f, _ := r.Field("", "F")
			value &= f.Max()
			word := initial
			v, _ := NewView(&word, r, tok, Options{Atomics: mode.atomics})
			if err := v.StoreBits(f, value); err != nil {
				return false
			}
			got, _ := v.LoadBits(f)
			return got == value && word&^f.Mask() == initial&^f.Mask()
		}
		if err := quick.Check(prop, nil); err != nil {
			t.Errorf("%s: %v", mode.name, err)
		}
	}
}

func TestWholeWordField(t *testing.T) {
	r := mustRegister(t, FieldSpec{Name: "DR", Offset: 0, Width: 32})
	word := uint32(0)
	v, _ := NewView(&word, r, claim(t, token.Unique), Options{})
	dr, _ := r.Field("", "DR")
	if !dr.Whole() {
		t.Fatal("32-bit field must be whole-word")
	}
	if err := v.StoreBits(dr, 0xCAFEBABE); err != nil || word != 0xCAFEBABE {
		t.Errorf("whole store: %#x, %v", word, err)
	}
}

func TestMultiVariant(t *testing.T) {
	r, err := NewRegister("CCMR", 0, true,
		Layout{Tag: "output", Fields: []FieldSpec{{Name: "OCM", Offset: 4, Width: 3}}},
		Layout{Tag: "input", Fields: []FieldSpec{{Name: "ICF", Offset: 4, Width: 4}}},
	)
	if err != nil {
		t.Fatal(err)
	}
	word := uint32(0)
	v, _ := NewView(&word, r, claim(t, token.Unique), Options{})
	ocm, _ := r.Field("output", "OCM")
	icf, _ := r.Field("input", "ICF")

	if err := v.StoreBits(ocm, 6); err != nil {
		t.Fatalf("store under active variant: %v", err)
	}
	if _, err := v.LoadBits(icf); !errors.Is(err, api.ErrWrongVariant) {
		t.Errorf("cross-variant load: %v", err)
	}
	if err := v.StoreBits(icf, 1); !errors.Is(err, api.ErrWrongVariant) {
		t.Errorf("cross-variant store: %v", err)
	}

	before := word
	if err := v.Select("input"); err != nil {
		t.Fatal(err)
	}
	if word != before {
		t.Error("Select wrote the word")
	}
	if got, err := v.LoadBits(icf); err != nil || got != 6 {
		t.Errorf("reinterpreted ICF = %d, %v; want 6", got, err)
	}
	if v.Variant() != "input" {
		t.Errorf("Variant = %q", v.Variant())
	}
	if err := v.Select("pwm"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("unknown variant: %v", err)
	}
}

func TestOverlappingVariantsTolerated(t *testing.T) {
	r, _ := NewRegister("SR", 0, false,
		Layout{Tag: "a", Fields: []FieldSpec{{Name: "X", Offset: 0, Width: 8}}},
		Layout{Tag: "b", Fields: []FieldSpec{{Name: "Y", Offset: 0, Width: 4}}},
	)
	word := uint32(0xAB)
	v, _ := NewView(&word, r, claim(t, token.Unique), Options{})
	y, _ := r.Field("b", "Y")
	if got, err := v.LoadBits(y); err != nil || got != 0xB {
		t.Errorf("non-disjoint cross-layout load = %#x, %v", got, err)
	}
}

func TestForeignField(t *testing.T) {
	a := mustRegister(t, FieldSpec{Name: "F", Offset: 0, Width: 1})
	b := mustRegister(t, FieldSpec{Name: "F", Offset: 0, Width: 1})
	word := uint32(0)
	v, _ := NewView(&word, a, claim(t, token.Unique), Options{})
	fb, _ := b.Field("", "F")
	if err := v.StoreBits(fb, 1); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("foreign field accepted: %v", err)
	}
}

func TestNewRegisterValidation(t *testing.T) {
	cases := []struct {
		name    string
		layouts []Layout
	}{
		{"none", nil},
		{"zero width", []Layout{{Fields: []FieldSpec{{Name: "A", Width: 0}}}}},
		{"past word", []Layout{{Fields: []FieldSpec{{Name: "A", Offset: 30, Width: 3}}}}},
		{"overlap", []Layout{{Fields: []FieldSpec{{Name: "A", Offset: 0, Width: 4}, {Name: "B", Offset: 3, Width: 2}}}}},
		{"dup field", []Layout{{Fields: []FieldSpec{{Name: "A", Width: 1}, {Name: "A", Offset: 1, Width: 1}}}}},
		{"dup tag", []Layout{{Tag: "t"}, {Tag: "t"}}},
	}
	for _, c := range cases {
		if _, err := NewRegister("R", 0, true, c.layouts...); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("%s: got %v", c.name, err)
		}
	}
}

func TestBitHelpers(t *testing.T) {
	r := mustRegister(t)
	for _, atomics := range []bool{true, false} {
		word := uint32(0)
		v, _ := NewView(&word, r, claim(t, token.Shared), Options{Atomics: atomics})
		_ = v.SetBit(3)
		_ = v.SetBit(31)
		_ = v.ToggleBit(0)
		_ = v.ClearBit(3)
		if word != 1<<31|1 {
			t.Errorf("atomics=%v: word = %#x", atomics, word)
		}
		if err := v.SetBit(32); !errors.Is(err, api.ErrOutOfRange) {
			t.Errorf("bit 32: %v", err)
		}
	}
}

func TestSharedOwnersNoLostUpdates(t *testing.T) {
	r := mustRegister(t)
	for _, atomics := range []bool{true, false} {
		word := uint32(0)
		const owners = 8
		var wg sync.WaitGroup
		for i := 0; i < owners; i++ {
			tok := claim(t, token.Shared)
			v, _ := NewView(&word, r, tok, Options{Atomics: atomics, Counters: &control.Counters{}})
			wg.Add(1)
			go func(bit uint8) {
				defer wg.Done()
				for n := 0; n < 500; n++ {
					_ = v.SetBit(bit)
					_ = v.ClearBit(bit)
					_ = v.SetBit(bit)
					v.Modify(func(w uint32) uint32 { return w ^ 1<<(bit+16) })
				}
			}(uint8(i))
		}
		wg.Wait()
		// each owner leaves its low bit set and toggles its high bit an even number of times.
		if word != 0xFF {
			t.Errorf("atomics=%v: word = %#x, want 0xff", atomics, word)
		}
	}
}

func TestSharedAfterUniqueOnOneWord(t *testing.T) {
	r := mustRegister(t)
	tokens, _ := token.NewRegistry(&control.Counters{}, "PERIPH")
	u, err := tokens.ClaimUnique("PERIPH")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tokens.ClaimShared("PERIPH"); !errors.Is(err, api.ErrAlreadyTaken) {
		t.Fatalf("ClaimShared with unique live: %v", err)
	}
	s := u.Share()
	if u.Exclusive() || s.Exclusive() {
		t.Fatal("Share must end exclusivity for every copy")
	}
	other, err := tokens.ClaimShared("PERIPH")
	if err != nil {
		t.Fatalf("ClaimShared after Share: %v", err)
	}

	const iters = 20000
	word := uint32(0)
	old, _ := NewView(&word, r, u, Options{Atomics: true})
	sv, _ := NewView(&word, r, s, Options{Atomics: true})
	ov, _ := NewView(&word, r, other, Options{Atomics: true})
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for n := 0; n < iters; n++ {
			_ = old.ToggleBit(0)
		}
	}()
	for _, v := range []*View{sv, ov} {
		go func(v *View) {
			defer wg.Done()
			for n := 0; n < iters; n++ {
				v.Modify(func(w uint32) uint32 { return w + 1<<8 })
			}
		}(v)
	}
	wg.Wait()
	if want := uint32(2 * iters << 8); word != want {
		t.Errorf("word = %#x, want %#x", word, want)
	}
}

func TestResetAndViewArgs(t *testing.T) {
	r, _ := Single("ODR", 0xA5, FieldSpec{Name: "P0", Width: 1})
	word := uint32(0)
	v, _ := NewView(&word, r, claim(t, token.Unique), Options{})
	v.Reset()
	if word != 0xA5 {
		t.Errorf("Reset wrote %#x", word)
	}
	if _, err := NewView(nil, r, claim(t, token.Unique), Options{}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("nil word: %v", err)
	}
	if _, err := NewView(&word, r, token.Token{}, Options{}); !errors.Is(err, api.ErrInvalidArgument) {
		t.Errorf("zero token: %v", err)
	}
}
