package vulnlib

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kvesta/depcheck/config"

	"github.com/tidwall/gjson"
)

type cpes struct {
	Vendor     string
	Name       string
	MaxVersion string
	MinVersion string
}

type vuln struct {
	cpe         []*cpes
	score       float64
	level       string
	desc        string
	publishDate string
	cveID       string
	references  []string
	source      string
}

// rows expands v into one database row per vulnerable product range.
func (v *vuln) rows() []*DBRow {
	rows := make([]*DBRow, 0, len(v.cpe))
	for _, c := range v.cpe {
		rows = append(rows, &DBRow{
			Vendor:      c.Vendor,
			Product:     c.Name,
			MaxVersion:  c.MaxVersion,
			MinVersion:  c.MinVersion,
			Description: v.desc,
			Level:       v.level,
			CVEID:       v.cveID,
			PublishDate: v.publishDate,
			Score:       v.score,
			Source:      v.source,
			References:  strings.Join(v.references, "\n"),
		})
	}
	return rows
}

// GetCvss downloads every feed in urls and stores its entries.
func (c *Client) GetCvss(ctx context.Context, urls []string) error {
	for _, url := range urls {
		data, err := c.download(ctx, url)
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", url, err)
		}

		vulns, err := cvssParse(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", url, err)
		}

		var rows []*DBRow
		for _, v := range vulns {
			rows = append(rows, v.rows()...)
		}

		if err = c.Insert(ctx, rows...); err != nil {
			return fmt.Errorf("failed to store %s: %w", url, err)
		}

		config.Infof("Stored %s entries from %s", config.Yellow(len(vulns)), url)
	}

	return nil
}

func (c *Client) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.Cli.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", res.Status)
	}

	var r io.Reader = res.Body
	if strings.HasSuffix(url, ".gz") {
		gz, err := gzip.NewReader(res.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}

	return io.ReadAll(r)
}

func cvssParse(data []byte) ([]*vuln, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("feed is not valid json")
	}

	var vulns []*vuln

	gjson.GetBytes(data, "CVE_Items").ForEach(func(_, item gjson.Result) bool {
		cveID := item.Get("cve.CVE_data_meta.ID").String()
		if cveID == "" {
			return true
		}

		cpeResult := cpeParse(item.Get("configurations.nodes"))
		if len(cpeResult) < 1 {
			return true
		}

		var score float64
		var level string

		if v3 := item.Get("impact.baseMetricV3.cvssV3"); v3.Exists() {
			score = v3.Get("baseScore").Float()
			level = v3.Get("baseSeverity").String()
		} else if v2 := item.Get("impact.baseMetricV2"); v2.Exists() {
			score = v2.Get("cvssV2.baseScore").Float()
			level = v2.Get("severity").String()
		} else {
			return true
		}

		publishDate := item.Get("publishedDate").String()
		if pd, err := time.Parse("2006-01-02T15:04Z", publishDate); err == nil {
			publishDate = pd.Format("2006-01-02")
		}

		var references []string
		for _, ref := range item.Get("cve.references.reference_data.#.url").Array() {
			references = append(references, ref.String())
		}

		vulns = append(vulns, &vuln{
			cpe:         cpeResult,
			score:       score,
			level:       strings.ToLower(level),
			desc:        item.Get("cve.description.description_data.0.value").String(),
			publishDate: publishDate,
			cveID:       cveID,
			references:  references,
			source:      "NVD",
		})

		return true
	})

	return vulns, nil
}

// cpeParse flattens the configuration tree into vulnerable product ranges.
// Bounds prefixed with '=' are inclusive, empty bounds are open.
func cpeParse(nodes gjson.Result) []*cpes {
	cs := []*cpes{}
	seen := map[string]bool{}

	var walk func(nodes gjson.Result)
	walk = func(nodes gjson.Result) {
		nodes.ForEach(func(_, node gjson.Result) bool {
			walk(node.Get("children"))

			node.Get("cpe_match").ForEach(func(_, c gjson.Result) bool {
				if !c.Get("vulnerable").Bool() {
					return true
				}

				cpe23Split := strings.Split(c.Get("cpe23Uri").String(), ":")
				if len(cpe23Split) < 6 {
					return true
				}

				scpe := &cpes{
					Vendor: unescape(cpe23Split[3]),
					Name:   unescape(cpe23Split[4]),
				}

				if v := cpe23Split[5]; v != "*" && v != "-" {
					scpe.MinVersion = "=" + unescape(v)
					scpe.MaxVersion = "=" + unescape(v)
				}

				if v := c.Get("versionStartIncluding"); v.Exists() {
					scpe.MinVersion = "=" + v.String()
				} else if v := c.Get("versionStartExcluding"); v.Exists() {
					scpe.MinVersion = v.String()
				}

				if v := c.Get("versionEndIncluding"); v.Exists() {
					scpe.MaxVersion = "=" + v.String()
				} else if v := c.Get("versionEndExcluding"); v.Exists() {
					scpe.MaxVersion = v.String()
				}

				key := scpe.Vendor + ":" + scpe.Name + ":" + scpe.MinVersion + ":" + scpe.MaxVersion
				if seen[key] {
					return true
				}
				seen[key] = true

				cs = append(cs, scpe)
				return true
			})

			return true
		})
	}

	walk(nodes)
	return cs
}

func unescape(s string) string {
	return strings.ReplaceAll(s, `\`, "")
}
