// Command bench drives the HTTP endpoints of cmd/server with a synthetic
// workload and reports throughput and latency. Four workload shapes are
// supported: get-popular (reads over a small hot set), get-all and
// put-all (uniform random reads/writes), and get-put (a 70/20/10 mix of
// hot reads, random writes and random deletes).
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "base URL of the running kvedge server")
		workload = flag.String("workload", "get-put", "workload: get-popular | get-all | put-all | get-put")
		workers  = flag.Int("workers", 32, "number of concurrent worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		keyspace = flag.Int("keys", 1_000_000, "keyspace size for random keys")
		popCount = flag.Int("popular", 50, "number of popular keys to prepopulate for get-popular / get-put")
		timeout  = flag.Duration("timeout", 2*time.Second, "per-request client timeout")
	)
	flag.Parse()

	switch *workload {
	case "get-popular", "get-all", "put-all", "get-put":
	default:
		log.Fatalf("bench: unknown workload %q (use get-popular | get-all | put-all | get-put)", *workload)
	}

	client := &http.Client{Timeout: *timeout}

	var popular []string
	if *workload == "get-popular" || *workload == "get-put" {
		popular = prepopulate(client, *baseURL, *popCount)
		if len(popular) == 0 {
			log.Fatal("bench: prepopulate failed, is the server responding?")
		}
	}

	var total, failed, reads, writes uint64
	var totalLatencyUS int64

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(*workers)
	start := time.Now()
	for i := 0; i < *workers; i++ {
		go func(id int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)*9973))

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				t0 := time.Now()
				ok, isRead := runOnce(client, *baseURL, *workload, popular, *keyspace, rng)
				us := time.Since(t0).Microseconds()

				atomic.AddUint64(&total, 1)
				if isRead {
					atomic.AddUint64(&reads, 1)
				} else {
					atomic.AddUint64(&writes, 1)
				}
				if ok {
					atomic.AddInt64(&totalLatencyUS, us)
				} else {
					atomic.AddUint64(&failed, 1)
				}
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	ok := atomic.LoadUint64(&total) - atomic.LoadUint64(&failed)
	avgUS := 0.0
	if ok > 0 {
		avgUS = float64(atomic.LoadInt64(&totalLatencyUS)) / float64(ok)
	}

	fmt.Printf("workload=%s workers=%d duration=%v url=%s\n", *workload, *workers, elapsed, *baseURL)
	fmt.Printf("total=%d ok=%d failed=%d (%.0f req/s)\n",
		atomic.LoadUint64(&total), ok, atomic.LoadUint64(&failed), float64(ok)/elapsed.Seconds())
	fmt.Printf("reads=%d writes=%d avg-latency=%.0fus\n", atomic.LoadUint64(&reads), atomic.LoadUint64(&writes), avgUS)
}

// runOnce issues a single request for the given workload and reports
// (success, wasARead).
func runOnce(c *http.Client, base, workload string, popular []string, keyspace int, rng *rand.Rand) (bool, bool) {
	switch workload {
	case "put-all":
		return doPut(c, base, randomKey(rng, keyspace), randomValue(rng)), false

	case "get-all":
		return doGet(c, base, randomKey(rng, keyspace)), true

	case "get-popular":
		return doGet(c, base, popular[rng.Intn(len(popular))]), true

	case "get-put":
		switch r := rng.Intn(100); {
		case r < 70:
			return doGet(c, base, popular[rng.Intn(len(popular))]), true
		case r < 90:
			return doPut(c, base, randomKey(rng, keyspace), randomValue(rng)), false
		default:
			return doDelete(c, base, randomKey(rng, keyspace)), false
		}
	}
	return false, false
}

func prepopulate(c *http.Client, base string, n int) []string {
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		key := "popular_" + strconv.Itoa(i)
		val := "val_" + strconv.Itoa(rand.Int())
		if doPut(c, base, key, val) {
			keys = append(keys, key)
		}
	}
	return keys
}

func randomKey(rng *rand.Rand, keyspace int) string {
	return "k" + strconv.Itoa(rng.Intn(keyspace))
}

func randomValue(rng *rand.Rand) string {
	return "v" + strconv.FormatUint(rng.Uint64(), 10)
}

func doPut(c *http.Client, base, key, value string) bool {
	form := url.Values{"key": {key}, "value": {value}}
	resp, err := c.Post(base+"/create", "application/x-www-form-urlencoded", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return false
	}
	defer drain(resp)
	return resp.StatusCode == http.StatusOK
}

func doGet(c *http.Client, base, key string) bool {
	resp, err := c.Get(base + "/read?key=" + url.QueryEscape(key))
	if err != nil {
		return false
	}
	defer drain(resp)
	return resp.StatusCode == http.StatusOK
}

func doDelete(c *http.Client, base, key string) bool {
	req, err := http.NewRequest(http.MethodDelete, base+"/delete?key="+url.QueryEscape(key), nil)
	if err != nil {
		return false
	}
	resp, err := c.Do(req)
	if err != nil {
		return false
	}
	defer drain(resp)
	return resp.StatusCode == http.StatusOK
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
