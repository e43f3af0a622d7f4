package abbrev

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

type mapLookup struct {
	entries map[string]string
	calls   []string
	err     error
}

func (m *mapLookup) Abbreviation(_ context.Context, word string) (string, bool, error) {
	m.calls = append(m.calls, word)
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.entries[word]
	return v, ok, nil
}

func TestTokens(t *testing.T) {
	got := Tokens("op.-com. en 1 a. op.")
	want := []string{"op", "com", "a"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens() = %v, want %v", got, want)
	}
	if got := Tokens("mélodr."); !reflect.DeepEqual(got, []string{"mélodr"}) {
		t.Errorf("Tokens(accented) = %v", got)
	}
}

func TestExpand(t *testing.T) {
	lookup := &mapLookup{entries: map[string]string{"op": "opéra", "com": "comique"}}
	if got := Expand(context.Background(), lookup, "op.-com."); got != "opéra-comique" {
		t.Errorf("Expand() = %q, want opéra-comique", got)
	}
}

func TestExpandNoTokens(t *testing.T) {
	lookup := &mapLookup{}
	if got := Expand(context.Background(), lookup, "vaudeville"); got != "vaudeville" {
		t.Errorf("Expand() = %q", got)
	}
	if len(lookup.calls) != 0 {
		t.Errorf("lookup called %d times, want 0", len(lookup.calls))
	}
}

func TestExpandEmpty(t *testing.T) {
	lookup := &mapLookup{}
	if got := Expand(context.Background(), lookup, ""); got != "" {
		t.Errorf("Expand(\"\") = %q", got)
	}
	if len(lookup.calls) != 0 {
		t.Errorf("lookup called for empty text")
	}
}

func TestExpandLeavesMissesUntouched(t *testing.T) {
	lookup := &mapLookup{entries: map[string]string{"com": "comédie"}}
	if got := Expand(context.Background(), lookup, "com. mêl. de chant"); got != "comédie mêl. de chant" {
		t.Errorf("Expand() = %q", got)
	}
}

func TestExpandDistinctLookups(t *testing.T) {
	lookup := &mapLookup{entries: map[string]string{"vaud": "vaudeville"}}
	if got := Expand(context.Background(), lookup, "vaud. / vaud."); got != "vaudeville / vaudeville" {
		t.Errorf("Expand() = %q", got)
	}
	if len(lookup.calls) != 1 {
		t.Errorf("lookup calls = %v, want one", lookup.calls)
	}
}

func TestExpandSinglePass(t *testing.T) {
	lookup := &mapLookup{entries: map[string]string{"a": "b.", "b": "c"}}
	if got := Expand(context.Background(), lookup, "a."); got != "b." {
		t.Errorf("Expand() = %q, want no re-expansion", got)
	}
}

func TestExpandLookupError(t *testing.T) {
	lookup := &mapLookup{err: errors.New("connection refused")}
	if got := Expand(context.Background(), lookup, "op.-com."); got != "op.-com." {
		t.Errorf("Expand() = %q, want original text", got)
	}
}

func TestLookupFunc(t *testing.T) {
	f := LookupFunc(func(_ context.Context, w string) (string, bool, error) { return w + "!", true, nil })
	if got := Expand(context.Background(), f, "drame."); got != "drame!" {
		t.Errorf("Expand() = %q", got)
	}
}
