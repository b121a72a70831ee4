package roles

import "testing"

func TestAllows_MatchingRole(t *testing.T) {
	if !Plumber.Allows("plumber") {
		t.Fatalf("роль plumber должна иметь доступ к категории plumber")
	}
	if !Plumber.Allows("PLUMBER") {
		t.Fatalf("сравнение категории должно быть регистронезависимым")
	}
	if Plumber.Allows("electrician") {
		t.Fatalf("роль plumber не должна иметь доступ к категории electrician")
	}
}

func TestAllows_Wildcards(t *testing.T) {
	for _, r := range []Role{All, Super} {
		for _, typ := range []string{"garbage", "labour", "electrician", "plumber", "miscellaneous"} {
			if !r.Allows(typ) {
				t.Fatalf("роль %s должна иметь доступ к категории %s", r, typ)
			}
		}
	}
}

func TestAllows_NoneDeniesEverything(t *testing.T) {
	for _, typ := range []string{"garbage", "labour", "electrician", "plumber", "miscellaneous", ""} {
		if None.Allows(typ) {
			t.Fatalf("пустая роль не должна давать доступ к категории %q", typ)
		}
	}
}

func TestParse(t *testing.T) {
	r, ok := Parse("  Electrician ")
	if !ok || r != Electrician {
		t.Fatalf("ожидали роль electrician, получили %q (ok=%v)", r, ok)
	}

	if _, ok := Parse("mayor"); ok {
		t.Fatalf("роль вне фиксированного словаря не должна проходить валидацию")
	}
}
