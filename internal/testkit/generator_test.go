package testkit

import (
	"testing"

	"geoanomaly/domain/observation"
)

func TestGenerator_Determinism(t *testing.T) {
	a := NewGenerator(42).WindowEffectDataset()
	b := NewGenerator(42).WindowEffectDataset()

	if len(a) != len(b) {
		t.Fatalf("record counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Category != b[i].Category || *a[i].Latitude != *b[i].Latitude || *a[i].Longitude != *b[i].Longitude {
			t.Fatalf("record %d differs between identically seeded generators", i)
		}
	}

	c := NewGenerator(43).WindowEffectDataset()
	same := true
	for i := range a {
		if *a[i].Latitude != *c[i].Latitude {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical coordinates")
	}
}

func TestGenerator_Cluster(t *testing.T) {
	g := NewGenerator(1)
	records := g.Cluster(observation.CategoryUFO, 40.5, -111.5, 0.2, 25)

	if len(records) != 25 {
		t.Fatalf("record count = %d, want 25", len(records))
	}
	for _, r := range records {
		if !r.HasCoordinates() {
			t.Fatal("cluster record missing coordinates")
		}
		if *r.Latitude < 40.3 || *r.Latitude > 40.7 {
			t.Errorf("latitude %v outside the cluster spread", *r.Latitude)
		}
		if *r.Longitude < -111.7 || *r.Longitude > -111.3 {
			t.Errorf("longitude %v outside the cluster spread", *r.Longitude)
		}
		if r.Category != observation.CategoryUFO {
			t.Errorf("category = %s, want ufo", r.Category)
		}
	}
}

func TestGenerator_WithoutCoordinates(t *testing.T) {
	records := NewGenerator(1).WithoutCoordinates(observation.CategoryBigfoot, 5)
	for _, r := range records {
		if r.HasCoordinates() {
			t.Fatal("record should have no coordinates")
		}
	}
}
