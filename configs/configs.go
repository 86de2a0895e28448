// Package configs holds the seed catalogs compiled into the binary.
package configs

import _ "embed"

// Leaders is the leader roster with coordinates and bilateral relations.
//
//go:embed leaders.yaml
var Leaders []byte

// Species is the catalog of playable alien species.
//
//go:embed species.yaml
var Species []byte
