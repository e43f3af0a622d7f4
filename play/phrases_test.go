package play

import "testing"

func intPtr(n int) *int { return &n }

func TestTheater(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"cirque", "Cirque du Soleil", "au Cirque du Soleil"},
		{"theatre", "Théâtre de l'Odéon", "au Théâtre de l'Odéon"},
		{"abbreviated", "Th. Italien", "au Th. Italien"},
		{"academie", "Académie royale de musique", "à l'Académie royale de musique"},
		{"fetes", "Fêtes de Saint-Cloud", "aux Fêtes de Saint-Cloud"},
		{"cour", "Cour des Tuileries", "à la Cour des Tuileries"},
		{"opera comique", "Opéra-Comique-Nationale", "à l'Opéra-Comique-Nationale"},
		{"unknown", "Gaîté", "Gaîté"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Theater(tt.in); got != tt.want {
				t.Errorf("Theater(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAuthor(t *testing.T) {
	if got := Author("Foo & Bar"); got != " par Foo & Bar," {
		t.Errorf("Author() = %q", got)
	}
	if got := Author(""); got != "" {
		t.Errorf("Author(\"\") = %q, want empty", got)
	}
	if got := Author("   "); got != "" {
		t.Errorf("Author(blank) = %q, want empty", got)
	}
}

func TestMusic(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Aznavour", " musique de Aznavour,"},
		{"Oleil", " musique d'Oleil,"},
		{"adam", " musique d'adam,"},
		{"Ymbert", " musique d'Ymbert,"},
		{"Hérold", " musique de Hérold,"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Music(tt.in); got != tt.want {
			t.Errorf("Music(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExpandFormat(t *testing.T) {
	tests := []struct {
		name string
		acts *int
		code string
		want string
	}{
		{"one act", intPtr(1), "a", "acte"},
		{"five tableaux", intPtr(5), "tabl", "tableaux"},
		{"one tableau", intPtr(1), "tabl", "tableau"},
		{"zero acts", intPtr(0), "a", "actes"},
		{"unknown count", nil, "a", "actes"},
		{"unknown code", intPtr(3), "sc", "sc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandFormat(tt.acts, tt.code); got != tt.want {
				t.Errorf("ExpandFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}
