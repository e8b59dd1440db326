package repository

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/jengzang/camglobe/internal/database"
	"github.com/jengzang/camglobe/internal/models"
)

func newTestRepo(t *testing.T) *CameraRepository {
	t.Helper()
	db, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "cameras.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.Migrate(db, zerolog.Nop()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return NewCameraRepository(db)
}

func f(v float64) *float64 { return &v }

func seed(t *testing.T, r *CameraRepository) {
	t.Helper()
	cams := []models.Camera{
		{ID: "a", Name: "Shibuya Crossing", Latitude: 35.66, Longitude: 139.70, Country: "JP", City: "Tokyo", Source: "skyline"},
		{ID: "b", Name: "Times Square", Latitude: 40.76, Longitude: -73.99, Country: "US", City: "New York", Source: "earthcam"},
		{ID: "c", Name: "Fiji Beach", Latitude: -17.71, Longitude: 178.07, Country: "FJ", Source: "skyline"},
		{ID: "d", Name: "Samoa 100%_Harbor", Latitude: -13.83, Longitude: -171.76, Country: "WS", Source: "skyline"},
		{ID: "e", Name: "Tokyo Tower", Latitude: 35.66, Longitude: 139.75, Country: "JP", City: "Tokyo", Source: "earthcam"},
	}
	if n, err := r.UpsertBatch(cams); err != nil || n != len(cams) {
		t.Fatalf("UpsertBatch = %d, %v", n, err)
	}
}

func TestCameraFilters(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r)

	tests := []struct {
		name   string
		filter models.CameraFilter
		want   []string
	}{
		{"all", models.CameraFilter{}, []string{"a", "b", "c", "d", "e"}},
		{"country", models.CameraFilter{Country: "JP"}, []string{"a", "e"}},
		{"country and source", models.CameraFilter{Country: "JP", Source: "earthcam"}, []string{"e"}},
		{"name search", models.CameraFilter{Query: "tokyo"}, []string{"e"}},
		{"like wildcards are literal", models.CameraFilter{Query: "100%_"}, []string{"d"}},
		{"bounding box", models.CameraFilter{MinLat: f(30), MaxLat: f(50), MinLon: f(-80), MaxLon: f(0)}, []string{"b"}},
		{"antimeridian box", models.CameraFilter{MinLat: f(-30), MaxLat: f(0), MinLon: f(170), MaxLon: f(-170)}, []string{"c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.All(tt.filter)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d cameras, want %v", len(got), tt.want)
			}
			for i, c := range got {
				if c.ID != tt.want[i] {
					t.Errorf("got[%d] = %s, want %s", i, c.ID, tt.want[i])
				}
			}
		})
	}
}

func TestListPagination(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r)

	page, total, err := r.List(models.CameraFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(page) != 2 || page[0].ID != "c" || page[1].ID != "d" {
		t.Errorf("page 2 = %v (total %d)", page, total)
	}
}

func TestUpsertKeepsCreatedAt(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.UpsertBatch([]models.Camera{{ID: "x", Name: "old", Latitude: 1, Longitude: 2, CreatedAt: 100}}); err != nil {
		t.Fatal(err)
	}
	if _, err := r.UpsertBatch([]models.Camera{{ID: "x", Name: "new", Latitude: 3, Longitude: 4}}); err != nil {
		t.Fatal(err)
	}

	c, err := r.GetByID("x")
	if err != nil || c == nil {
		t.Fatalf("GetByID = %v, %v", c, err)
	}
	if c.Name != "new" || c.Latitude != 3 || c.CreatedAt != 100 || c.UpdatedAt == 0 {
		t.Errorf("camera = %+v", c)
	}
	if n, _ := r.Count(); n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestUpsertRejectsOutOfRange(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.UpsertBatch([]models.Camera{
		{ID: "ok", Latitude: 1, Longitude: 1},
		{ID: "bad", Latitude: 91, Longitude: 1},
	})
	if err == nil {
		t.Fatal("out-of-range latitude should be rejected")
	}
	if n, _ := r.Count(); n != 0 {
		t.Errorf("count = %d, the batch should roll back", n)
	}
}

func TestGetByIDAndDelete(t *testing.T) {
	r := newTestRepo(t)
	seed(t, r)

	if c, err := r.GetByID("missing"); err != nil || c != nil {
		t.Errorf("GetByID(missing) = %v, %v", c, err)
	}
	ok, err := r.Delete("a")
	if err != nil || !ok {
		t.Fatalf("Delete = %v, %v", ok, err)
	}
	if ok, _ := r.Delete("a"); ok {
		t.Error("second delete should report nothing deleted")
	}
}
