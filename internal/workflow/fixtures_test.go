package workflow

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/tabml/internal/config"
)

func writeCSV(t *testing.T, dir, name string, records [][]string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(records))
}

func itoa(i int) string { return strconv.Itoa(i) }

// testConfig points every walkthrough at fixtures in a temp dir and shrinks
// the search spaces.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.Output.Dir = filepath.Join(dir, "out")
	cfg.Output.Plots = false
	cfg.NJobs = 2
	require.NoError(t, os.MkdirAll(cfg.Data.Dir, 0o755))

	two := 2
	cfg.Churn.MaxDepth = []*int{&two, nil}
	cfg.Churn.MinSamplesLeaf = []int{1, 5}

	cfg.Claims.Forest = config.ForestGrid{
		MaxDepth:        []*int{nil},
		MaxFeatures:     []float64{0.6},
		MaxSamples:      []float64{0.7},
		MinSamplesLeaf:  []int{1},
		MinSamplesSplit: []int{2},
		NEstimators:     []int{10},
	}
	cfg.Claims.Boost = config.BoostGrid{
		MaxDepth:       []int{2},
		MinChildWeight: []float64{1},
		LearningRate:   []float64{0.3},
		NEstimators:    []int{10},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func writeTaxi(t *testing.T, cfg *config.Config) {
	writeCSV(t, cfg.Data.Dir, cfg.Data.Taxi, [][]string{
		{"", "VendorID", "passenger_count", "trip_distance", "payment_type", "tip_amount", "total_amount"},
		{"0", "2", "1", "3.34", "1", "2.76", "16.56"},
		{"1", "1", "1", "1.8", "1", "4", "20.8"},
		{"2", "1", "2", "1", "2", "0", "8.75"},
		{"3", "2", "1", "33.96", "1", "1", "27.69"},
		{"4", "2", "2", "4.37", "2", "0", "17.8"},
		{"5", "2", "2", "0.5", "1", "2", "7.3"},
		{"6", "1", "1", "2.5", "3", "0", "-3.8"},
	})
}

func writeUnicorns(t *testing.T, cfg *config.Config, valuation string) {
	writeCSV(t, cfg.Data.Dir, cfg.Data.Unicorns, [][]string{
		{"Company", "Valuation", "Date Joined", "Industry", "City", "Country", "Continent", "Year Founded", "Funding", "Select Investors"},
		{"Bytedance", valuation, "2017-04-07", "Artificial intelligence", "Beijing", "China", "Asia", "2012", "$8B", "Sequoia Capital China"},
		{"SpaceX", "$100B", "2012-12-01", "Other", "Hawthorne", "United States", "North America", "2002", "$7B", "Founders Fund"},
		{"SHEIN", "$100B", "2018-07-03", "E-commerce & direct-to-consumer", "Shenzhen", "China", "Asia", "2008", "$2B", "Tiger Global Management"},
		{"Stripe", "$95B", "2014-01-23", "Fintech", "San Francisco", "United States", "North America", "2010", "$2B", "Khosla Ventures"},
		{"Klarna", "$46B", "2011-12-12", "Fintech", "Stockholm", "Sweden", "Europe", "2005", "$4B", "Institutional Venture Partners"},
		{"Canva", "$40B", "2018-01-08", "Internet software & services", "Surry Hills", "Australia", "Oceania", "2012", "$572M", "Sequoia Capital China"},
	})
}

// writeChurn writes customers who churn exactly when they are 50 or older.
func writeChurn(t *testing.T, cfg *config.Config) (avgChurnedBalance float64) {
	records := [][]string{{"RowNumber", "CustomerId", "Surname", "CreditScore", "Geography", "Gender", "Age",
		"Tenure", "Balance", "NumOfProducts", "HasCrCard", "IsActiveMember", "EstimatedSalary", "Exited"}}
	geos := []string{"France", "Germany", "Spain"}
	var sum float64
	var churned int
	for i := 0; i < 200; i++ {
		age, exited := 25+i%20, 0
		if i%4 == 0 {
			age, exited = 50+i%15, 1
		}
		balance := float64(1000 * (i % 37))
		if exited == 1 {
			sum += balance
			churned++
		}
		gender := "Female"
		if i%2 == 0 {
			gender = "Male"
		}
		records = append(records, []string{
			itoa(i + 1), itoa(15600000 + i), fmt.Sprintf("Name%d", i), itoa(500 + (i*7)%350),
			geos[i%3], gender, itoa(age), itoa(i % 11), fmt.Sprintf("%g", balance), itoa(1 + i%4),
			itoa(i % 2), itoa((i / 2) % 2), fmt.Sprintf("%d.5", 20000+(i*131)%90000), itoa(exited),
		})
	}
	writeCSV(t, cfg.Data.Dir, cfg.Data.Churn, records)
	return sum / float64(churned)
}

var claimTopics = []string{
	"drone deliveries happen daily",
	"octopuses have three hearts",
	"honey never spoils inside sealed jars",
	"lightning strikes twice every summer",
	"penguins propose using pebbles",
}

func claimsRow(i int) []string {
	status := "opinion"
	text := fmt.Sprintf("my family friends are convinced %s", claimTopics[i%len(claimTopics)])
	views, likes := 2000+i*10, 300+i
	if i%2 == 0 {
		status = "claim"
		text = fmt.Sprintf("someone learned from media reports %s", claimTopics[i%len(claimTopics)])
		views, likes = 200000+i*1000, 80000+i*100
	}
	verified := "not verified"
	if i%3 == 0 {
		verified = "verified"
	}
	bans := []string{"active", "under review", "banned"}
	return []string{
		itoa(i + 1), status, itoa(7000000000 + i), itoa(5 + i%55), text, verified, bans[i%3],
		itoa(views), itoa(likes), itoa(likes / 10), itoa(likes / 50), itoa(likes / 100),
	}
}

// writeClaims writes 120 labelled videos, one exact duplicate and one row
// with a missing transcription.
func writeClaims(t *testing.T, cfg *config.Config) {
	records := [][]string{{"#", "claim_status", "video_id", "video_duration_sec", "video_transcription_text",
		"verified_status", "author_ban_status", "video_view_count", "video_like_count", "video_share_count",
		"video_download_count", "video_comment_count"}}
	for i := 0; i < 120; i++ {
		records = append(records, claimsRow(i))
	}
	records = append(records, claimsRow(0))
	missing := claimsRow(121)
	missing[4] = ""
	records = append(records, missing)
	writeCSV(t, cfg.Data.Dir, cfg.Data.Claims, records)
}
