package services

import (
	"testing"

	"github.com/mgsetel/vigilacore/internal/models"
)

func TestRegionalCode(t *testing.T) {
	tests := []struct {
		name     string
		locality string
		expected string
		ok       bool
	}{
		{"valid code", "05101001", "1010", true},
		{"another valid code", "18530996", "5309", true},
		{"too short", "0510100", "", false},
		{"too long", "051010012", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RegionalCode(tt.locality)
			if ok != tt.ok {
				t.Errorf("RegionalCode(%q) ok = %v, expected %v", tt.locality, ok, tt.ok)
			}
			if got != tt.expected {
				t.Errorf("RegionalCode(%q) = %q, expected %q", tt.locality, got, tt.expected)
			}
		})
	}
}

func TestRouteWith(t *testing.T) {
	rules := map[string]string{
		"5101": models.RegionAraxa,
		"5105": models.RegionUberaba,
		"5309": models.RegionFrutal,
	}

	tests := []struct {
		name     string
		locality string
		expected string
	}{
		{"routed to Araxá", "18510101", models.RegionAraxa},
		{"routed to Uberaba", "18510501", models.RegionUberaba},
		{"routed to Frutal", "18530901", models.RegionFrutal},
		{"no matching rule", "18999901", models.RegionUnrouted},
		{"malformed code", "123", models.RegionUnrouted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RouteWith(rules, tt.locality); got != tt.expected {
				t.Errorf("RouteWith(%q) = %q, expected %q", tt.locality, got, tt.expected)
			}
		})
	}
}

func TestRegionRouter_Route(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	router := NewRegionRouter(db)

	region, err := router.Route("18510101")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if region != models.RegionAraxa {
		t.Errorf("Route() = %q, expected %q", region, models.RegionAraxa)
	}

	region, err = router.Route("18000001")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if region != models.RegionUnrouted {
		t.Errorf("Route() = %q, expected %q", region, models.RegionUnrouted)
	}
}

func TestRegionRouter_AddRule(t *testing.T) {
	db := newTestDB(t)
	router := NewRegionRouter(db)

	if err := router.AddRule("4000", models.RegionFrutal); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}
	region, err := router.Route("18400001")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if region != models.RegionFrutal {
		t.Errorf("Route() after AddRule = %q, expected %q", region, models.RegionFrutal)
	}

	// Updating an existing rule replaces the region.
	if err := router.AddRule("4000", models.RegionAraxa); err != nil {
		t.Fatalf("AddRule() update error = %v", err)
	}
	region, _ = router.Route("18400001")
	if region != models.RegionAraxa {
		t.Errorf("Route() after rule update = %q, expected %q", region, models.RegionAraxa)
	}
}

func TestRegionRouter_Unrouted(t *testing.T) {
	db := newTestDB(t)
	seedRegionRules(t, db)
	router := NewRegionRouter(db)

	records := []models.ReadingRecord{
		{TenantID: "t1", BatchID: "b1", LocalityCode: "18999901", Region: models.RegionUnrouted, Status: models.ReadingStatusPending},
		{TenantID: "t1", BatchID: "b1", LocalityCode: "18999901", Region: models.RegionUnrouted, Status: models.ReadingStatusPending},
		{TenantID: "t1", BatchID: "b1", LocalityCode: "18888801", Region: models.RegionUnrouted, Status: models.ReadingStatusPending},
		{TenantID: "t1", BatchID: "b1", LocalityCode: "18510101", Region: models.RegionAraxa, Status: models.ReadingStatusPending},
		{TenantID: "t2", BatchID: "b2", LocalityCode: "18777701", Region: models.RegionUnrouted, Status: models.ReadingStatusPending},
	}
	if err := db.Create(&records).Error; err != nil {
		t.Fatalf("seed records: %v", err)
	}

	entries, err := router.Unrouted(&UnroutedRequest{TenantID: "t1"})
	if err != nil {
		t.Fatalf("Unrouted() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Unrouted() returned %d entries, expected 2", len(entries))
	}
	if entries[0].LocalityCode != "18999901" || entries[0].Count != 2 {
		t.Errorf("top entry = %+v, expected locality 18999901 with count 2", entries[0])
	}
	if entries[0].RegionalCode != "9999" {
		t.Errorf("top entry regional code = %q, expected 9999", entries[0].RegionalCode)
	}
}
