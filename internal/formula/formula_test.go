package formula

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"praxis/internal/data"
)

func sessionTable(t *testing.T) data.Table {
	t.Helper()
	tab, err := data.ReadCSV(strings.NewReader(`id,age,group
p1,20,ctrl
p2,30,treat
p3,25,ctrl
`))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	return tab
}

func TestParse(t *testing.T) {
	f, err := Parse("learning_rate ~ 1 + age + (1|id)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := Formula{
		Target: "learning_rate",
		Fixed:  []string{"1", "age"},
		Random: []RandomTerm{{Terms: []string{"1"}, Group: "id"}},
	}
	if diff := cmp.Diff(want, f); diff != "" {
		t.Fatalf("formula mismatch (-want +got):\n%s", diff)
	}
}

func TestParseImplicitIntercept(t *testing.T) {
	f, err := Parse("noise ~ age")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "age"}, f.Fixed); diff != "" {
		t.Fatalf("fixed terms (-want +got):\n%s", diff)
	}

	f, err = Parse("noise ~ 0 + age")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if diff := cmp.Diff([]string{"age"}, f.Fixed); diff != "" {
		t.Fatalf("suppressed intercept (-want +got):\n%s", diff)
	}
}

func TestParseRandomSlopes(t *testing.T) {
	f, err := Parse("lr ~ 1 + (1 + age|id)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []RandomTerm{{Terms: []string{"1", "age"}, Group: "id"}}
	if diff := cmp.Diff(want, f.Random); diff != "" {
		t.Fatalf("random terms (-want +got):\n%s", diff)
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"no tilde",
		"~ 1 + x",
		"y ~ (1 + x|",
		"y ~ (1 + x)",
		"y ~ 1 + + x",
	} {
		if _, err := Parse(src); err == nil {
			t.Fatalf("%q: expected parse error", src)
		}
	}
}

func TestBuildFixedAndRandom(t *testing.T) {
	tab := sessionTable(t)
	f, err := Parse("lr ~ 1 + age + (1|id)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, err := Build(f, tab)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if diff := cmp.Diff([]string{"(Intercept)", "age"}, d.XNames); diff != "" {
		t.Fatalf("x names (-want +got):\n%s", diff)
	}
	wantX := [][]float64{{1, 20}, {1, 30}, {1, 25}}
	if diff := cmp.Diff(wantX, d.X); diff != "" {
		t.Fatalf("x matrix (-want +got):\n%s", diff)
	}

	wantZ := [][]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	if diff := cmp.Diff(wantZ, d.Z); diff != "" {
		t.Fatalf("z matrix (-want +got):\n%s", diff)
	}
	if len(d.Blocks) != 1 || d.Blocks[0].Group != "id" || d.Blocks[0].Offset != 0 {
		t.Fatalf("blocks: %+v", d.Blocks)
	}
	if diff := cmp.Diff([]string{"p1", "p2", "p3"}, d.Blocks[0].Levels); diff != "" {
		t.Fatalf("levels (-want +got):\n%s", diff)
	}
}

func TestBuildCategoricalDummyCoding(t *testing.T) {
	tab := sessionTable(t)
	f, err := Parse("lr ~ group")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, err := Build(f, tab)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if diff := cmp.Diff([]string{"(Intercept)", "group:treat"}, d.XNames); diff != "" {
		t.Fatalf("x names (-want +got):\n%s", diff)
	}
	wantX := [][]float64{{1, 0}, {1, 1}, {1, 0}}
	if diff := cmp.Diff(wantX, d.X); diff != "" {
		t.Fatalf("x matrix (-want +got):\n%s", diff)
	}
}

func TestBuildRandomSlope(t *testing.T) {
	tab := sessionTable(t)
	f, err := Parse("lr ~ 0 + (age|group)")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	d, err := Build(f, tab)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	wantZ := [][]float64{{20, 0}, {0, 30}, {25, 0}}
	if diff := cmp.Diff(wantZ, d.Z); diff != "" {
		t.Fatalf("z matrix (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"age|group:ctrl", "age|group:treat"}, d.ZNames); diff != "" {
		t.Fatalf("z names (-want +got):\n%s", diff)
	}
}

func TestBuildMissingColumn(t *testing.T) {
	tab := sessionTable(t)
	f, err := Parse("lr ~ absent")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := Build(f, tab); err == nil {
		t.Fatal("expected missing column error")
	}
}
