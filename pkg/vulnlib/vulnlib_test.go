package vulnlib

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const feed = `{
  "CVE_Items": [
    {
      "cve": {
        "CVE_data_meta": {"ID": "CVE-2021-44228"},
        "description": {"description_data": [{"lang": "en", "value": "Log4Shell"}]},
        "references": {"reference_data": [{"url": "https://logging.apache.org/log4j/2.x/security.html"}]}
      },
      "configurations": {
        "nodes": [
          {
            "operator": "AND",
            "children": [
              {
                "operator": "OR",
                "cpe_match": [
                  {
                    "vulnerable": true,
                    "cpe23Uri": "cpe:2.3:a:apache:log4j:*:*:*:*:*:*:*:*",
                    "versionStartIncluding": "2.0.1",
                    "versionEndExcluding": "2.12.2"
                  }
                ]
              }
            ],
            "cpe_match": [
              {
                "vulnerable": true,
                "cpe23Uri": "cpe:2.3:a:apache:log4j:2.0:beta9:*:*:*:*:*:*"
              },
              {
                "vulnerable": false,
                "cpe23Uri": "cpe:2.3:o:microsoft:windows:-:*:*:*:*:*:*:*"
              }
            ]
          }
        ]
      },
      "impact": {
        "baseMetricV3": {"cvssV3": {"baseScore": 10.0, "baseSeverity": "CRITICAL"}},
        "baseMetricV2": {"cvssV2": {"baseScore": 9.3}, "severity": "HIGH"}
      },
      "publishedDate": "2021-12-10T10:15Z"
    },
    {
      "cve": {
        "CVE_data_meta": {"ID": "CVE-2010-0001"},
        "description": {"description_data": [{"lang": "en", "value": "old"}]}
      },
      "configurations": {
        "nodes": [
          {
            "cpe_match": [
              {
                "vulnerable": true,
                "cpe23Uri": "cpe:2.3:a:gnu:gzip:1.3.12:*:*:*:*:*:*:*"
              }
            ]
          }
        ]
      },
      "impact": {
        "baseMetricV2": {"cvssV2": {"baseScore": 6.8}, "severity": "MEDIUM"}
      },
      "publishedDate": "2010-01-29T18:30Z"
    },
    {
      "cve": {"CVE_data_meta": {"ID": "CVE-2010-0002"}},
      "configurations": {"nodes": []},
      "impact": {}
    }
  ]
}`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	_, err := w.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	c := &Client{
		Cli:           http.DefaultClient,
		Store:         t.TempDir(),
		driver:        DriverSQLite,
		startYear:     2020,
		validForHours: 4,
	}
	require.NoError(t, c.Init())
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCvssParse(t *testing.T) {
	vulns, err := cvssParse([]byte(feed))
	require.NoError(t, err)
	require.Len(t, vulns, 2)

	log4j := vulns[0]
	assert.Equal(t, "CVE-2021-44228", log4j.cveID)
	assert.Equal(t, 10.0, log4j.score)
	assert.Equal(t, "critical", log4j.level)
	assert.Equal(t, "2021-12-10", log4j.publishDate)
	assert.Equal(t, "Log4Shell", log4j.desc)
	assert.Equal(t, []string{"https://logging.apache.org/log4j/2.x/security.html"}, log4j.references)

	require.Len(t, log4j.cpe, 2)
	assert.Equal(t, &cpes{Vendor: "apache", Name: "log4j", MinVersion: "=2.0.1", MaxVersion: "2.12.2"}, log4j.cpe[0])
	assert.Equal(t, &cpes{Vendor: "apache", Name: "log4j", MinVersion: "=2.0", MaxVersion: "=2.0"}, log4j.cpe[1])

	gz := vulns[1]
	assert.Equal(t, 6.8, gz.score)
	assert.Equal(t, "medium", gz.level)
}

func TestCvssParseInvalid(t *testing.T) {
	_, err := cvssParse([]byte("<html>"))
	assert.Error(t, err)
}

func TestCpeParseUnescape(t *testing.T) {
	nodes := gjson.Parse(`[{"cpe_match": [{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:nodejs:node\\.js:1.0:*:*:*:*:*:*:*"}]}]`)
	cs := cpeParse(nodes)
	require.Len(t, cs, 1)
	assert.Equal(t, "node.js", cs[0].Name)
	assert.Equal(t, "=1.0", cs[0].MaxVersion)
}

func TestRebind(t *testing.T) {
	c := &Client{driver: DriverPostgres}
	assert.Equal(t, `SELECT * FROM vulns WHERE "Product" = $1 AND "Vendor" = $2`,
		c.rebind(`SELECT * FROM vulns WHERE "Product" = ? AND "Vendor" = ?`))

	c.driver = DriverSQLite
	assert.Equal(t, `WHERE a = ?`, c.rebind(`WHERE a = ?`))
}

func TestPostgresDSN(t *testing.T) {
	tests := []struct {
		name string
		conn string
		user string
		pass string
		want string
	}{
		{name: "url", conn: "postgres://u:p@db/nvd", user: "x", want: "postgres://u:p@db/nvd"},
		{name: "keywords", conn: "host=db dbname=nvd", user: "dc", pass: "secret", want: "host=db dbname=nvd user=dc password=secret"},
		{name: "user already set", conn: "host=db user=a", user: "b", want: "host=db user=a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, postgresDSN(tt.conn, tt.user, tt.pass))
		})
	}
}

func TestInsertAndQuery(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	ok, err := c.HasData()
	require.NoError(t, err)
	assert.False(t, ok)

	rows := []*DBRow{
		{Vendor: "apache", Product: "struts", MinVersion: "=2.0", MaxVersion: "2.3.32", CVEID: "CVE-2017-5638", Score: 10, Level: "critical", Source: "NVD"},
		{Vendor: "apache", Product: "struts", MinVersion: "=2.0", MaxVersion: "2.3.32", CVEID: "CVE-2017-5638", Score: 10, Level: "critical", Source: "NVD"},
		{Vendor: "other", Product: "struts", CVEID: "CVE-2000-0001", Score: 5, References: "a\nb"},
	}
	require.NoError(t, c.Insert(ctx, rows...))

	found, err := c.QueryVulnByProduct("apache", "struts")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "CVE-2017-5638", found[0].CVEID)
	assert.Equal(t, "=2.0", found[0].MinVersion)

	byID, err := c.QueryVulnByCVEID("CVE-2000-0001")
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "a\nb", byID[0].References)

	exists, err := c.ProductExists("apache", "struts")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = c.ProductExists("apache", "tomcat")
	require.NoError(t, err)
	assert.False(t, exists)

	vendors, err := c.VendorsForProduct("struts")
	require.NoError(t, err)
	assert.Equal(t, []string{"apache", "other"}, vendors)

	ok, err = c.HasData()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestProperties(t *testing.T) {
	c := newTestClient(t)

	v, err := c.GetProperty("missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, c.SetProperty("k", "1"))
	require.NoError(t, c.SetProperty("k", "2"))

	v, err = c.GetProperty("k")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestUpdate(t *testing.T) {
	var requests int32
	var paths []string
	body := gzipped(t, feed)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		paths = append(paths, r.URL.Path)
		w.Write(body)
	}))
	defer srv.Close()

	c := newTestClient(t)
	c.Cli = srv.Client()
	c.baseURL = srv.URL + "/nvdcve-1.1-%d.json.gz"
	c.modifiedURL = srv.URL + "/nvdcve-1.1-modified.json.gz"

	origNow := now
	defer func() { now = origNow }()

	current := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return current }

	ctx := context.Background()

	// never updated: every year since the start year
	require.NoError(t, c.Update(ctx))
	assert.Equal(t, []string{"/nvdcve-1.1-2020.json.gz", "/nvdcve-1.1-2021.json.gz", "/nvdcve-1.1-2022.json.gz"}, paths)

	rows, err := c.QueryVulnByProduct("apache", "log4j")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	// within the validity window nothing is downloaded
	current = current.Add(time.Hour)
	require.NoError(t, c.Update(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))

	// recent database: only the modified feed
	paths = nil
	current = current.Add(24 * time.Hour)
	require.NoError(t, c.Update(ctx))
	assert.Equal(t, []string{"/nvdcve-1.1-modified.json.gz"}, paths)

	// stale database: full refresh again
	paths = nil
	current = current.Add(8 * 24 * time.Hour)
	require.NoError(t, c.Update(ctx))
	assert.Len(t, paths, 3)
}

func TestInsertReplacesScores(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	row := func(score float64, level, desc string) *DBRow {
		return &DBRow{Vendor: "apache", Product: "struts", MaxVersion: "2.3.32", CVEID: "CVE-2017-5638",
			Score: score, Level: level, Description: desc, Source: "NVD"}
	}

	require.NoError(t, c.Insert(ctx, row(5.0, "medium", "old")))
	require.NoError(t, c.Insert(ctx, row(10.0, "critical", "new")))

	found, err := c.QueryVulnByCVEID("CVE-2017-5638")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 10.0, found[0].Score)
	assert.Equal(t, "critical", found[0].Level)
	assert.Equal(t, "new", found[0].Description)
}

func TestUpdateModifiedFeedRescores(t *testing.T) {
	modified := strings.Replace(feed, `"baseScore": 10.0, "baseSeverity": "CRITICAL"`, `"baseScore": 6.5, "baseSeverity": "MEDIUM"`, 1)
	modified = strings.Replace(modified, `"value": "Log4Shell"`, `"value": "Log4Shell, rescored"`, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "modified") {
			w.Write(gzipped(t, modified))
			return
		}
		w.Write(gzipped(t, feed))
	}))
	defer srv.Close()

	c := newTestClient(t)
	c.Cli = srv.Client()
	c.baseURL = srv.URL + "/nvdcve-1.1-%d.json.gz"
	c.modifiedURL = srv.URL + "/nvdcve-1.1-modified.json.gz"

	origNow := now
	defer func() { now = origNow }()

	current := time.Date(2022, 3, 1, 12, 0, 0, 0, time.UTC)
	now = func() time.Time { return current }

	ctx := context.Background()
	require.NoError(t, c.Update(ctx))

	current = current.Add(24 * time.Hour)
	require.NoError(t, c.Update(ctx))

	rows, err := c.QueryVulnByCVEID("CVE-2021-44228")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, 6.5, r.Score)
		assert.Equal(t, "medium", r.Level)
		assert.Equal(t, "Log4Shell, rescored", r.Description)
	}

	for _, key := range []string{"nvd.lastcheck", "nvd.lastupdate"} {
		v, err := c.GetProperty(key)
		require.NoError(t, err)
		assert.NotEmpty(t, v, key)
	}
}

func TestUpdateFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t)
	c.Cli = srv.Client()
	c.baseURL = srv.URL + "/nvdcve-1.1-%d.json.gz"

	err := c.Update(context.Background())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))

	v, err := c.GetProperty(propLastUpdate)
	require.NoError(t, err)
	assert.Empty(t, v)
}

func TestDatabaseFile(t *testing.T) {
	c := newTestClient(t)
	_, err := os.Stat(DatabaseFile(c.Store))
	assert.NoError(t, err)
}
