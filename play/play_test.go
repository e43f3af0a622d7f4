package play

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

func sampleRow() Row {
	return Row{
		ID:          42,
		Wicks:       "1234",
		Title:       "Le Mariage de raison",
		Author:      sql.NullString{String: "Scribe", Valid: true},
		Genre:       sql.NullString{String: "vaud.", Valid: true},
		Acts:        sql.NullInt64{Int64: 2, Valid: true},
		Format:      sql.NullString{String: "a", Valid: true},
		TheaterCode: sql.NullString{String: "GYM", Valid: true},
		TheaterName: sql.NullString{String: "Théâtre du Gymnase", Valid: true},
		GregDate:    time.Date(1826, 10, 15, 0, 0, 0, 0, time.UTC),
	}
}

func TestNew(t *testing.T) {
	ref := time.Date(1826, 10, 15, 0, 0, 0, 0, time.UTC)
	p, err := New(sampleRow(), Extras{ExpandedGenre: "vaudeville", Reference: ref})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if p.ExpandedGenre != "vaudeville" {
		t.Errorf("ExpandedGenre = %q", p.ExpandedGenre)
	}
	if p.Acts == nil || *p.Acts != 2 {
		t.Errorf("Acts = %v, want 2", p.Acts)
	}
	if !p.Anniversary || p.Marker() != AnniversaryMarker {
		t.Errorf("expected anniversary marker, got %q", p.Marker())
	}

	p, err = New(sampleRow(), Extras{Reference: ref.AddDate(0, 0, 1)})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if p.Marker() != "" {
		t.Errorf("Marker() = %q, want empty", p.Marker())
	}
}

func TestNewNullActs(t *testing.T) {
	row := sampleRow()
	row.Acts = sql.NullInt64{}
	p, err := New(row, Extras{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if p.Acts != nil {
		t.Errorf("Acts = %v, want nil", *p.Acts)
	}
	if got, want := p.GenrePhrase(""), " vaud. en actes,"; got != want {
		t.Errorf("GenrePhrase() = %q, want %q", got, want)
	}
}

func TestNewRejectsMissingIdentifiers(t *testing.T) {
	row := sampleRow()
	row.Wicks = ""
	if _, err := New(row, Extras{}); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("New() error = %v, want ErrInvalidRow", err)
	}
	row = sampleRow()
	row.ID = 0
	if _, err := New(row, Extras{}); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("New() error = %v, want ErrInvalidRow", err)
	}
}

func TestGenrePhrase(t *testing.T) {
	tests := []struct {
		name  string
		play  Play
		genre string
		want  string
	}{
		{"single act", Play{Genre: "com.", Acts: intPtr(1), Format: "a"}, "", " com. en 1 acte,"},
		{"tableaux", Play{Genre: "féerie", Acts: intPtr(5), Format: "tabl"}, "", " féerie en 5 tableaux,"},
		{"explicit genre", Play{Genre: "com.", Acts: intPtr(3), Format: "a"}, "comédie", " comédie en 3 actes,"},
		{"no format", Play{Genre: "drame"}, "", " drame,"},
		{"no genre", Play{Acts: intPtr(3), Format: "a"}, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.play.GenrePhrase(tt.genre); got != tt.want {
				t.Errorf("GenrePhrase(%q) = %q, want %q", tt.genre, got, tt.want)
			}
		})
	}
}

func TestExpandedGenrePhrase(t *testing.T) {
	p := Play{Genre: "op.-com.", ExpandedGenre: "opéra-comique", Acts: intPtr(1), Format: "a"}
	if got, want := p.ExpandedGenrePhrase(), " opéra-comique en 1 acte,"; got != want {
		t.Errorf("ExpandedGenrePhrase() = %q, want %q", got, want)
	}
	p.ExpandedGenre = ""
	if got, want := p.ExpandedGenrePhrase(), " op.-com. en 1 acte,"; got != want {
		t.Errorf("ExpandedGenrePhrase() = %q, want %q", got, want)
	}
}

func TestTheaterString(t *testing.T) {
	p := Play{TheaterName: "Cirque Olympique", TheaterCode: "CO"}
	if got := p.TheaterString(); got != "au Cirque Olympique" {
		t.Errorf("TheaterString() = %q", got)
	}
	p.TheaterName = ""
	if got := p.TheaterString(); got != "CO" {
		t.Errorf("TheaterString() = %q, want code", got)
	}
	p.TheaterCode = ""
	if got := p.TheaterString(); got != "" {
		t.Errorf("TheaterString() = %q, want empty", got)
	}
}
