package shop

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"ecogarden-sync-go/internal/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const imageBase = "https://seoul-ht-08.s3.us-west-1.amazonaws.com/items/"

// DefaultObjects is the built-in catalog used when no catalog file exists
var DefaultObjects = []models.GardenObject{
	{Id: "bench", Name: "Bench", Price: 10, Icon: "🪑", Image: imageBase + "bench.png"},
	{Id: "flower1", Name: "Flower 1", Price: 2, Icon: "🌸", Image: imageBase + "flower1.png"},
	{Id: "flower2", Name: "Flower 2", Price: 3, Icon: "🌺", Image: imageBase + "flower2.png"},
	{Id: "fountain", Name: "Fountain", Price: 20, Icon: "⛲", Image: imageBase + "fountain.png"},
	{Id: "rock1", Name: "Rock 1", Price: 1, Icon: "🪨", Image: imageBase + "rock1.png"},
	{Id: "rock2", Name: "Rock 2", Price: 1, Icon: "🗿", Image: imageBase + "rock2.png"},
	{Id: "tree1", Name: "Tree 1", Price: 5, Icon: "🌳", Image: imageBase + "tree1.png"},
	{Id: "tree2", Name: "Tree 2", Price: 6, Icon: "🌲", Image: imageBase + "tree2.png"},
	{Id: "tree3", Name: "Tree 3", Price: 7, Icon: "🌴", Image: imageBase + "tree3.png"},
	{Id: "tree4", Name: "Tree 4", Price: 8, Icon: "🌵", Image: imageBase + "tree4.png"},
}

type catalogFile struct {
	Objects []models.GardenObject `yaml:"objects"`
}

// Catalog is the ordered list of purchasable objects
type Catalog struct {
	objects []models.GardenObject
	byId    map[string]models.GardenObject
}

var validate = validator.New()

// NewCatalog validates objects and indexes them by id
func NewCatalog(objects []models.GardenObject) (*Catalog, error) {
	c := &Catalog{
		objects: make([]models.GardenObject, 0, len(objects)),
		byId:    make(map[string]models.GardenObject, len(objects)),
	}
	for i, obj := range objects {
		if err := validate.Struct(obj); err != nil {
			return nil, fmt.Errorf("object at index %d is invalid: %w", i, err)
		}
		if _, dup := c.byId[obj.Id]; dup {
			return nil, fmt.Errorf("duplicate object id %q", obj.Id)
		}
		c.byId[obj.Id] = obj
		c.objects = append(c.objects, obj)
	}
	return c, nil
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	c, err := NewCatalog(DefaultObjects)
	if err != nil {
		panic(err)
	}
	return c
}

// LoadCatalog reads a YAML catalog. A relative path is resolved against the
// working directory; a missing file yields the built-in catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	var catalogPath string
	if filepath.IsAbs(path) {
		catalogPath = path
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		catalogPath = filepath.Join(wd, path)
	}

	data, err := os.ReadFile(catalogPath)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Debug("No catalog file, using built-in objects", zap.String("path", catalogPath))
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var parsed catalogFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	if len(parsed.Objects) == 0 {
		return nil, fmt.Errorf("%s lists no objects", path)
	}

	return NewCatalog(parsed.Objects)
}

func (c *Catalog) Objects() []models.GardenObject {
	out := make([]models.GardenObject, len(c.objects))
	copy(out, c.objects)
	return out
}

func (c *Catalog) Get(objectId string) (models.GardenObject, bool) {
	obj, ok := c.byId[objectId]
	return obj, ok
}
