// Package dataset reads and writes camera datasets: a JSON array or
// newline-delimited JSON, optionally zstd-compressed.
package dataset

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"

	"github.com/jengzang/camglobe/internal/models"
	"github.com/jengzang/camglobe/internal/spatial"
)

// CompressedExt marks zstd-compressed dataset files.
const CompressedExt = ".zst"

// record accepts the field spellings found in public camera lists.
type record struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Latitude  *float64 `json:"latitude"`
	Lat       *float64 `json:"lat"`
	Longitude *float64 `json:"longitude"`
	Lon       *float64 `json:"lon"`
	Lng       *float64 `json:"lng"`
	Country   string   `json:"country"`
	City      string   `json:"city"`
	Source    string   `json:"source"`
	StreamURL string   `json:"streamUrl"`
	URL       string   `json:"url"`
	CreatedAt int64    `json:"createdAt"`
}

func firstFloat(vals ...*float64) (float64, bool) {
	for _, v := range vals {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r record) camera() (models.Camera, bool) {
	lat, okLat := firstFloat(r.Latitude, r.Lat)
	lon, okLon := firstFloat(r.Longitude, r.Lon, r.Lng)
	return models.Camera{
		ID:        strings.TrimSpace(r.ID),
		Name:      firstString(r.Name, r.Title),
		Latitude:  lat,
		Longitude: lon,
		Country:   r.Country,
		City:      r.City,
		Source:    r.Source,
		StreamURL: firstString(r.StreamURL, r.URL),
		CreatedAt: r.CreatedAt,
	}, okLat && okLon
}

// Stats summarizes what Normalize did.
type Stats struct {
	Read       int           `json:"read"`
	Invalid    int           `json:"invalid"`
	Duplicates int           `json:"duplicates"`
	DerivedIDs int           `json:"derivedIds"`
	Kept       int           `json:"kept"`
	Bounds     orb.Bound     `json:"-"`
	Center     spatial.Point `json:"-"` // centroid of the kept cameras
}

// Decode reads a JSON array or NDJSON stream of camera records. Records
// without both coordinates come back with NaN coordinates so Normalize
// counts them as invalid.
func Decode(r io.Reader) ([]models.Camera, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}

	var records []record
	if first == '[' {
		if err := json.NewDecoder(br).Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode json array: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(br)
		scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			b := bytes.TrimSpace(scanner.Bytes())
			if len(b) == 0 {
				continue
			}
			var rec record
			if err := json.Unmarshal(b, &rec); err != nil {
				return nil, fmt.Errorf("failed to decode line %d: %w", line, err)
			}
			records = append(records, rec)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read dataset: %w", err)
		}
	}

	cameras := make([]models.Camera, 0, len(records))
	for _, rec := range records {
		c, ok := rec.camera()
		if !ok {
			c.Latitude, c.Longitude = math.NaN(), math.NaN()
		}
		cameras = append(cameras, c)
	}
	return cameras, nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}

// Normalize drops cameras with invalid coordinates, derives missing ids and
// de-duplicates by id. A later duplicate replaces an earlier one in place.
func Normalize(cameras []models.Camera) ([]models.Camera, Stats) {
	st := Stats{Read: len(cameras)}
	index := make(map[string]int, len(cameras))
	out := make([]models.Camera, 0, len(cameras))
	var points []spatial.Point

	for _, c := range cameras {
		if !spatial.ValidCoordinate(c.Latitude, c.Longitude) {
			st.Invalid++
			continue
		}
		if c.ID == "" {
			c.ID = DeriveID(c)
			st.DerivedIDs++
		}
		if i, ok := index[c.ID]; ok {
			out[i] = c
			points[i] = spatial.Point{Lat: c.Latitude, Lon: c.Longitude}
			st.Duplicates++
			continue
		}
		index[c.ID] = len(out)
		out = append(out, c)
		points = append(points, spatial.Point{Lat: c.Latitude, Lon: c.Longitude})
	}

	st.Kept = len(out)
	if len(points) > 0 {
		st.Bounds = spatial.BoundingBox(points)
		st.Center = spatial.Centroid(points)
	}
	return out, st
}

// DeriveID builds a stable id from a camera's position and source fields:
// cam_<geohash7>_<first 10 hex chars of sha256>.
func DeriveID(c models.Camera) string {
	h := sha256.New()
	for _, part := range []string{
		c.Source,
		c.Name,
		c.StreamURL,
		strconv.FormatFloat(c.Latitude, 'f', 6, 64),
		strconv.FormatFloat(c.Longitude, 'f', 6, 64),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	sum := hex.EncodeToString(h.Sum(nil))
	return "cam_" + spatial.EncodeGeohash(c.Latitude, c.Longitude, 7) + "_" + sum[:10]
}

// Load reads and normalizes the dataset at path, decompressing .zst files.
func Load(path string) ([]models.Camera, Stats, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer file.Close()

	var r io.Reader = file
	if strings.HasSuffix(path, CompressedExt) {
		dec, err := zstd.NewReader(file)
		if err != nil {
			return nil, Stats{}, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	cameras, err := Decode(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("%s: %w", path, err)
	}
	out, st := Normalize(cameras)
	return out, st, nil
}

// Encode writes cameras as NDJSON, zstd-compressed when compress is set.
func Encode(w io.Writer, cameras []models.Camera, compress bool) error {
	bufWriter := bufio.NewWriterSize(w, 256*1024)
	var out io.Writer = bufWriter

	var enc *zstd.Encoder
	if compress {
		var err error
		enc, err = zstd.NewWriter(bufWriter, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return fmt.Errorf("failed to create zstd writer: %w", err)
		}
		out = enc
	}

	je := json.NewEncoder(out)
	for _, c := range cameras {
		if err := je.Encode(c); err != nil {
			if enc != nil {
				enc.Close()
			}
			return fmt.Errorf("failed to encode camera %s: %w", c.ID, err)
		}
	}

	if enc != nil {
		if err := enc.Close(); err != nil {
			return fmt.Errorf("failed to close encoder: %w", err)
		}
	}
	if err := bufWriter.Flush(); err != nil {
		return fmt.Errorf("failed to flush buffer: %w", err)
	}
	return nil
}

// Save writes cameras to path, compressing when the name ends in .zst.
func Save(path string, cameras []models.Camera) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if err := Encode(file, cameras, strings.HasSuffix(path, CompressedExt)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
