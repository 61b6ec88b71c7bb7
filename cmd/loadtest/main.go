// loadtest is a dev convenience for generating vitals ingestion traffic
// against a running cmd/api instance. It is not part of the pipeline's
// correctness surface.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type LoadTestConfig struct {
	NumRequests int
	Concurrency int
	TargetURL   string
	NumPatients int
}

type LoadTestStats struct {
	TotalRequests uint64
	Queued        uint64
	Duplicates    uint64
	RateLimited   uint64
	Errors        uint64
	MinLatency    time.Duration
	MaxLatency    time.Duration
}

type reading struct {
	PatientID string  `json:"patient_id"`
	Timestamp string  `json:"timestamp"`
	HR        int     `json:"hr"`
	BPSys     int     `json:"bp_sys"`
	BPDia     int     `json:"bp_dia"`
	SpO2      int     `json:"spo2"`
	RR        int     `json:"rr"`
	Temp      float64 `json:"temp"`
}

func main() {
	numRequests := flag.Int("requests", 1000, "Number of ingest requests to send")
	concurrency := flag.Int("concurrency", 50, "Number of concurrent workers")
	targetURL := flag.String("url", "http://localhost:8080/ingest", "Ingest endpoint URL")
	numPatients := flag.Int("patients", 20, "Number of distinct simulated patients")
	flag.Parse()

	cfg := LoadTestConfig{
		NumRequests: *numRequests,
		Concurrency: *concurrency,
		TargetURL:   *targetURL,
		NumPatients: *numPatients,
	}

	fmt.Printf("loadtest: sending %d requests to %s with %d workers across %d patients\n",
		cfg.NumRequests, cfg.TargetURL, cfg.Concurrency, cfg.NumPatients)

	stats := run(cfg)
	printResults(stats)
}

func run(cfg LoadTestConfig) *LoadTestStats {
	stats := &LoadTestStats{MinLatency: time.Hour}
	client := &http.Client{Timeout: 5 * time.Second}

	jobs := make(chan int, cfg.NumRequests)
	var wg sync.WaitGroup
	var mu sync.Mutex

	start := time.Now()
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				send(client, cfg, idx, stats, &mu)
			}
		}()
	}

	for i := 0; i < cfg.NumRequests; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	fmt.Printf("loadtest: completed in %v\n", time.Since(start))
	return stats
}

func send(client *http.Client, cfg LoadTestConfig, idx int, stats *LoadTestStats, mu *sync.Mutex) {
	r := reading{
		PatientID: fmt.Sprintf("patient-%d", idx%cfg.NumPatients),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		HR:        80 + rand.Intn(30),
		BPSys:     110 + rand.Intn(20),
		BPDia:     70 + rand.Intn(15),
		SpO2:      95 + rand.Intn(5),
		RR:        14 + rand.Intn(6),
		Temp:      36.5 + rand.Float64(),
	}

	body, _ := json.Marshal(r)

	start := time.Now()
	resp, err := client.Post(cfg.TargetURL, "application/json", bytes.NewReader(body))
	latency := time.Since(start)

	atomic.AddUint64(&stats.TotalRequests, 1)

	mu.Lock()
	if latency > stats.MaxLatency {
		stats.MaxLatency = latency
	}
	if latency < stats.MinLatency {
		stats.MinLatency = latency
	}
	mu.Unlock()

	if err != nil {
		atomic.AddUint64(&stats.Errors, 1)
		return
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusAccepted:
		atomic.AddUint64(&stats.Queued, 1)
	case http.StatusOK:
		atomic.AddUint64(&stats.Duplicates, 1)
	case http.StatusTooManyRequests:
		atomic.AddUint64(&stats.RateLimited, 1)
	default:
		atomic.AddUint64(&stats.Errors, 1)
	}
}

func printResults(stats *LoadTestStats) {
	fmt.Println("================================================================================")
	fmt.Println("LOADTEST RESULTS")
	fmt.Println("================================================================================")
	fmt.Printf("Total Requests:   %d\n", stats.TotalRequests)
	fmt.Printf("Queued:           %d\n", stats.Queued)
	fmt.Printf("Duplicates:       %d\n", stats.Duplicates)
	fmt.Printf("Rate Limited:     %d\n", stats.RateLimited)
	fmt.Printf("Errors:           %d\n", stats.Errors)
	fmt.Printf("Latency (min):    %v\n", stats.MinLatency)
	fmt.Printf("Latency (max):    %v\n", stats.MaxLatency)
	fmt.Println("================================================================================")
}
