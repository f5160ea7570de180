package terminology

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Resource describes one versioned terminology the output documents cite.
type Resource struct {
	ID              string `yaml:"id" json:"id"`
	Name            string `yaml:"name" json:"name"`
	URL             string `yaml:"url" json:"url"`
	Version         string `yaml:"version" json:"version"`
	NamespacePrefix string `yaml:"namespace_prefix" json:"namespace_prefix"`
	IRIPrefix       string `yaml:"iri_prefix" json:"iri_prefix"`
}

type Catalog struct {
	Resources []Resource `yaml:"resources" json:"resources"`
}

// LoadCatalog reads a resource catalog override from YAML; an empty path
// yields the built-in defaults.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return DefaultCatalog(), err
	}
	var cat Catalog
	if err := yaml.Unmarshal(content, &cat); err != nil {
		return Catalog{}, err
	}
	if len(cat.Resources) == 0 {
		return Catalog{}, fmt.Errorf("resource catalog empty")
	}
	return cat, nil
}

// DefaultCatalog lists the terminologies the OMOP vocabulary joins emit
// codes from.
func DefaultCatalog() Catalog {
	return Catalog{Resources: []Resource{
		{
			ID:              "snomedct",
			Name:            "Systematized Nomenclature of Medicine - Clinical Terms(SNOMED-CT)",
			URL:             "http://www.snomedbrowser.com/",
			Version:         "SNOMEDCT_2023_03_01",
			NamespacePrefix: "snomedct",
			IRIPrefix:       "snomedct",
		},
		{
			ID:              "rxnorm",
			Name:            "RxNorm",
			URL:             "https://mor.nlm.nih.gov/RxNav/search?searchBy=RXCUI&searchTerm=221058",
			Version:         "2023-01-01",
			NamespacePrefix: "rxnorm",
			IRIPrefix:       "rxnorm",
		},
		{
			ID:              "loinc",
			Name:            "LOINC",
			URL:             "https://loinc.org/rdf/",
			Version:         "2022-04-01",
			NamespacePrefix: "loinc",
			IRIPrefix:       "loinc",
		},
		{
			ID:              "ncit",
			Name:            "NCIT",
			URL:             "http://purl.obolibrary.org/obo/ncit.owl",
			Version:         "2023-10-30",
			NamespacePrefix: "ncit",
			IRIPrefix:       "ncit",
		},
	}}
}
