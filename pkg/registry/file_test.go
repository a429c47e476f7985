// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeeDigitalWorks/placefs/pkg/types"
)

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "services.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
services:
  - uuid: osd1
    address: 10.0.0.1:32640
    last_updated_s: 1700000000
    data:
      free: "50000000000"
      config.country: DE
  - uuid: mrc1
    type: mrc
    name: MRC @ mrc1
`), 0o644))

	set, mappings, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"osd1", "mrc1"}, set.UUIDs())
	assert.Equal(t, types.ServiceTypeOSD, set[0].Type)
	assert.Equal(t, "osd1", set[0].Name)
	assert.Equal(t, int64(1700000000), set[0].LastUpdatedS)
	country, _ := set[0].Attr("config.country")
	assert.Equal(t, "DE", country)
	assert.Equal(t, types.ServiceTypeMRC, set[1].Type)
	assert.Equal(t, []Mapping{{UUID: "osd1", Host: "10.0.0.1", Port: 32640}}, mappings)
}

func TestBuildRejectsInvalidEntries(t *testing.T) {
	t.Parallel()
	tests := map[string]ServicesFile{
		"missing uuid":   {Services: []ServiceSpec{{Name: "x"}}},
		"duplicate uuid": {Services: []ServiceSpec{{UUID: "a"}, {UUID: "a"}}},
		"bad type":       {Services: []ServiceSpec{{UUID: "a", Type: "tape"}}},
		"bad address":    {Services: []ServiceSpec{{UUID: "a", Address: "nohost"}}},
		"bad port":       {Services: []ServiceSpec{{UUID: "a", Address: "h:port"}}},
	}
	for name, f := range tests {
		_, _, err := f.Build()
		assert.Error(t, err, name)
	}
}
