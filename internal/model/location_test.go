package model

import "testing"

func TestNamedLocationNormalizesPrefixes(t *testing.T) {
	loc := NamedLocation("Berkshire", []string{"sl", "RG", "SL", " "}, "berkshire")
	if len(loc.PostcodePrefixes) != 2 || loc.PostcodePrefixes[0] != "RG" || loc.PostcodePrefixes[1] != "SL" {
		t.Fatalf("unexpected prefixes: %v", loc.PostcodePrefixes)
	}
	if !loc.Valid() {
		t.Error("expected named location to be valid")
	}
}

func TestLocationSpecValid(t *testing.T) {
	rec := LocationRecord{CanonicalName: "York", Coordinate: Coordinate{Lat: 53.96, Lon: -1.08}, Accuracy: AccuracyApproximate}
	tests := []struct {
		name string
		loc  LocationSpec
		want bool
	}{
		{name: "postcode", loc: PostcodeLocation("yo17", "", "yo17"), want: true},
		{name: "radius", loc: RadiusLocation(rec, 16, "york"), want: true},
		{name: "radius without distance", loc: RadiusLocation(rec, 0, "york"), want: false},
		{name: "mixed variants", loc: LocationSpec{Kind: LocationPostcodeExact, Outcode: "YO17", PostcodePrefixes: []string{"YO"}}, want: false},
		{name: "unknown kind", loc: LocationSpec{}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLocationSpecSameAs(t *testing.T) {
	a := PostcodeLocation("YO17", "", "yo17")
	b := PostcodeLocation("yo17", "", "YO17 area")
	if !a.SameAs(b) {
		t.Error("expected outcodes to compare equal regardless of token")
	}
	c := NamedLocation("Yorkshire", []string{"YO"}, "yorkshire")
	if a.SameAs(c) {
		t.Error("different kinds must not compare equal")
	}
}

func TestFilterSpecCloneIsDeep(t *testing.T) {
	tech := TechWind
	minKW := 100.0
	loc := NamedLocation("Berkshire", []string{"RG", "SL"}, "berkshire")
	f := &FilterSpec{Technology: &tech, Capacity: &CapacityBound{MinKW: &minKW}, Location: &loc}

	clone := f.Clone()
	*clone.Capacity.MinKW = 500
	clone.Location.PostcodePrefixes[0] = "YO"

	if *f.Capacity.MinKW != 100 {
		t.Errorf("clone shares capacity pointer: %v", *f.Capacity.MinKW)
	}
	if f.Location.PostcodePrefixes[0] != "RG" {
		t.Errorf("clone shares prefix slice: %v", f.Location.PostcodePrefixes)
	}
}

func TestExecutionModeFor(t *testing.T) {
	limit := 5
	if m := ExecutionModeFor(Intent{Kind: IntentNewSearch}, &limit, 20); m.Kind != ModeRankedTopK || m.K != 5 {
		t.Errorf("unexpected mode for new search: %+v", m)
	}
	if m := ExecutionModeFor(Intent{Kind: IntentAggregate, Metric: MetricAverage}, nil, 20); m.Kind != ModeFullScanAggregate || m.Metric != MetricAverage {
		t.Errorf("unexpected mode for aggregate: %+v", m)
	}
	if m := ExecutionModeFor(Intent{Kind: IntentComparative}, nil, 20); m.Kind != ModeFullScanAggregate {
		t.Errorf("comparative must bypass ranking: %+v", m)
	}
	if m := ExecutionModeFor(Intent{Kind: IntentExport}, nil, 20); m.Kind != ModeFullScanExport {
		t.Errorf("unexpected mode for export: %+v", m)
	}
}
