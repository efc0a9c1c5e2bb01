package pedpeel

import (
	"strconv"
	"strings"
	"testing"
)

func TestToGraphViz(t *testing.T) {
	ped := mustPed(t,
		ent("f", "0", "0", Male),
		ent("m", "0", "0", Female),
		ent("k", "f", "m", Male),
		ent("x", "0", "0", Male),
	)
	mk := marker(ped, Autosomal, 2, map[string]Genotype{
		"f": {1, 2},
		"m": {1, 1},
		"k": {2, 2},
		"x": {1, 1},
	})
	el := Eliminate(ped, mk, ElimOptions{})
	var b strings.Builder
	n, e := ToGraphViz(&b, ped, el.Errors()...)
	if e != nil {
		t.Fatal(e)
	}
	out := b.String()
	if n != len(out) {
		t.Errorf("got %v bytes counted; wrote %v", n, len(out))
	}
	if !strings.HasPrefix(out, "digraph full {\n") || !strings.HasSuffix(out, "}\n") {
		t.Errorf("malformed graph %q", out)
	}
	k := idx(ped, "k")
	if !strings.Contains(out, "GEN_ELIM_PASS1") || !strings.Contains(out, "r0 -> p"+strconv.Itoa(k)) {
		t.Errorf("error individual missing from %q", out)
	}
	if strings.Contains(out, "\"x\"") {
		t.Errorf("clean component drawn: %q", out)
	}
}

