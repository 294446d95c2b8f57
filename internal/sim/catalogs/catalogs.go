package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed buildings.schema.json
var buildingsSchemaJSON string

const buildingsSchemaURL = "buildsim://schemas/buildings.schema.json"

// ErrMalformed marks a catalog file that could not be parsed or failed validation.
// It is fatal to the load step and is never retried.
var ErrMalformed = errors.New("malformed catalog")

type Catalog struct {
	Buildings []BuildingDef
	Digest    string
}

// BuildingDef is immutable after Load. ID is the dense index into Catalog.Buildings.
type BuildingDef struct {
	ID               int    `json:"-"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	Image            string `json:"image,omitempty"`
	ConstructionCost int    `json:"construction_cost"`
	HourlyProfit     int    `json:"hourly_profit"`
	FiniteStock      bool   `json:"finite_stock,omitempty"`
	Walkable         bool   `json:"walkable,omitempty"`
	MinShopTier      int    `json:"min_shop_tier,omitempty"`
	ShopCost         int    `json:"shop_cost"`
	LinkedEventID    *int   `json:"linked_event_id,omitempty"`
}

func Load(configDir string) (*Catalog, error) {
	return LoadFile(filepath.Join(configDir, "buildings.json"))
}

func LoadFile(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse validates raw against the building schema and assigns dense ids in file order.
func Parse(raw []byte) (*Catalog, error) {
	schema, err := compileSchema()
	if err != nil {
		return nil, err
	}

	var doc any
	numDec := json.NewDecoder(bytes.NewReader(raw))
	numDec.UseNumber()
	if err := numDec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: buildings.json: %v", ErrMalformed, err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("%w: buildings.json: %v", ErrMalformed, err)
	}

	var defs []BuildingDef
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&defs); err != nil {
		return nil, fmt.Errorf("%w: buildings.json: %v", ErrMalformed, err)
	}
	for i := range defs {
		defs[i].ID = i
		if defs[i].MinShopTier < 1 {
			defs[i].MinShopTier = 1
		}
	}
	return &Catalog{Buildings: defs, Digest: sha256Hex(raw)}, nil
}

// New builds a catalog from in-memory definitions, reassigning ids by position.
func New(defs []BuildingDef) *Catalog {
	out := make([]BuildingDef, len(defs))
	copy(out, defs)
	for i := range out {
		out[i].ID = i
		if out[i].MinShopTier < 1 {
			out[i].MinShopTier = 1
		}
	}
	b, _ := json.Marshal(out)
	return &Catalog{Buildings: out, Digest: sha256Hex(b)}
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Buildings)
}

func (c *Catalog) Get(id int) (BuildingDef, bool) {
	if c == nil || id < 0 || id >= len(c.Buildings) {
		return BuildingDef{}, false
	}
	return c.Buildings[id], true
}

func compileSchema() (*jsonschema.Schema, error) {
	comp := jsonschema.NewCompiler()
	if err := comp.AddResource(buildingsSchemaURL, bytes.NewReader([]byte(buildingsSchemaJSON))); err != nil {
		return nil, fmt.Errorf("buildings schema: %w", err)
	}
	s, err := comp.Compile(buildingsSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("buildings schema: %w", err)
	}
	return s, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
