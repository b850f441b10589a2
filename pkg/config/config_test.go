package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	c, err := Load(NewViper())
	require.NoError(t, err)

	require.Equal(t, []string{AllRegions}, c.Regions)
	require.True(t, c.DiscoverRegions())
	require.Equal(t, 48*time.Hour, c.FreshnessWindow)
	require.Equal(t, DefaultRoleName, c.RoleName)
	require.Equal(t, "sqlite", c.Store.Type)
	require.Equal(t, DefaultPrefixServices, c.Prefix.Services)
	require.Empty(t, c.Prefix.Regions)
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	t.Setenv("ALLOWED_REGIONS", "['us-east-1', 'eu-west-1']")
	t.Setenv("IP_TIME_LIMIT", "3600")

	c, err := Load(NewViper())
	require.NoError(t, err)

	require.Equal(t, []string{"us-east-1", "eu-west-1"}, c.Regions)
	require.False(t, c.DiscoverRegions())
	require.Equal(t, time.Hour, c.FreshnessWindow)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Setenv("DANGLEIP_REGIONS", "sa-east-1")
	t.Setenv("ALLOWED_REGIONS", "['us-east-1']")

	c, err := Load(NewViper())
	require.NoError(t, err)
	require.Equal(t, []string{"sa-east-1"}, c.Regions)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dangleip.yaml")
	content := `
regions:
  - us-east-1
  - eu-west-1
ip_time_limit: 600
role_name: auditor
accounts:
  - id: "111111111111"
    name: prod
  - id: "222222222222"
    name: staging
store:
  type: sqlite
  sqlite_path: /var/lib/dangleip/seen.db
prefix:
  services: [EC2]
  regions: [us-east-1]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	v := NewViper()
	require.NoError(t, ReadFile(v, path))
	c, err := Load(v)
	require.NoError(t, err)

	require.Equal(t, []string{"us-east-1", "eu-west-1"}, c.Regions)
	require.Equal(t, 10*time.Minute, c.FreshnessWindow)
	require.Equal(t, "auditor", c.RoleName)
	require.Equal(t, []Account{{ID: "111111111111", Name: "prod"}, {ID: "222222222222", Name: "staging"}}, c.Accounts)
	require.Equal(t, "sqlite", c.Store.Type)
	require.Equal(t, "/var/lib/dangleip/seen.db", c.Store.SQLitePath)
	require.Equal(t, []string{"EC2"}, c.Prefix.Services)
	require.Equal(t, []string{"us-east-1"}, c.Prefix.Regions)
}

func TestReadFile_MissingExplicitPath(t *testing.T) {
	err := ReadFile(NewViper(), filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]interface{}{
		"unknown store":      {"store.type": "dynamo"},
		"mixed sentinel":     {"regions": []string{"all", "us-east-1"}},
		"zero window":        {"ip_time_limit": 0},
		"no concurrency":     {"concurrency": 0},
		"short retention":    {"store.retention": "1h"},
		"bad retention":      {"store.retention": "soon"},
		"empty region list":  {"regions": "[]"},
		"account without id": {"accounts": []map[string]string{{"name": "orphan"}}},
	}
	for name, overrides := range cases {
		t.Run(name, func(t *testing.T) {
			v := NewViper()
			for k, val := range overrides {
				v.Set(k, val)
			}
			_, err := Load(v)
			require.Error(t, err)
		})
	}
}

func TestParseRegionList(t *testing.T) {
	require.Equal(t, []string{"us-east-1", "eu-west-1"}, ParseRegionList("us-east-1,eu-west-1"))
	require.Equal(t, []string{"us-east-1", "eu-west-1"}, ParseRegionList(" us-east-1  eu-west-1 "))
	require.Equal(t, []string{"us-east-1", "eu-west-1"}, ParseRegionList(`['us-east-1', 'eu-west-1']`))
	require.Equal(t, []string{"all"}, ParseRegionList(`['all']`))
	require.Empty(t, ParseRegionList("[]"))
}
