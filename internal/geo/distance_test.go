package geo

import (
	"math"
	"testing"
)

func TestDistanceKm_KnownPoints(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64
		tolerance              float64
	}{
		{name: "same point", lat1: 10.80, lng1: 106.70, lat2: 10.80, lng2: 106.70, want: 0, tolerance: 1e-9},
		{name: "one degree of latitude", lat1: 10.0, lng1: 106.70, lat2: 11.0, lng2: 106.70, want: 111.195, tolerance: 0.01},
		{name: "hanoi to ho chi minh city", lat1: 21.0285, lng1: 105.8542, lat2: 10.8231, lng2: 106.6297, want: 1137, tolerance: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.want) > tt.tolerance {
				t.Errorf("DistanceKm() = %.4f, want %.4f ± %.4f", got, tt.want, tt.tolerance)
			}
		})
	}
}

func TestDistanceKm_Symmetric(t *testing.T) {
	a := DistanceKm(10.80, 106.70, 10.89, 106.75)
	b := DistanceKm(10.89, 106.75, 10.80, 106.70)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f and %f", a, b)
	}
}

func TestDistanceMeters_Rounds(t *testing.T) {
	got := DistanceMeters(10.0, 106.70, 10.009, 106.70)
	if got < 1000 || got > 1002 {
		t.Errorf("DistanceMeters() = %d, want about 1001", got)
	}
}

func TestSortByDistance_NearestFirst(t *testing.T) {
	items := []float64{12.5, 0.4, 7.1, 0.4, 3}
	SortByDistance(items, func(v float64) float64 { return v })

	want := []float64{0.4, 0.4, 3, 7.1, 12.5}
	for i := range want {
		if items[i] != want[i] {
			t.Fatalf("SortByDistance() = %v, want %v", items, want)
		}
	}
}
