// Command sign prints a content webhook signature header for a body file and
// can replay the signed body against a running instance.
//
//	sign -file body.json
//	sign -file body.json -url http://localhost:8080/api/revalidate
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/solovoro/solovoro-api/pkg/httpclient"
	"github.com/solovoro/solovoro-api/pkg/signature"
)

func main() {
	file := flag.String("file", "-", "body file to sign, - for stdin")
	secret := flag.String("secret", os.Getenv("SANITY_REVALIDATE_SECRET"), "webhook secret (default $SANITY_REVALIDATE_SECRET)")
	timestamp := flag.Int64("t", 0, "signature timestamp in unix milliseconds (default now)")
	target := flag.String("url", "", "POST the signed body to this URL and print the response")
	flag.Parse()

	if *secret == "" {
		fail("a secret is required: pass -secret or set SANITY_REVALIDATE_SECRET")
	}

	body, err := readBody(*file)
	if err != nil {
		fail("read body: %v", err)
	}

	ts := time.Now()
	if *timestamp > 0 {
		ts = time.UnixMilli(*timestamp)
	}
	header := signature.Sign(body, *secret, ts)

	if *target == "" {
		fmt.Println(header)
		return
	}

	status, respBody, err := replay(*target, body, header)
	if err != nil {
		fail("replay: %v", err)
	}
	fmt.Printf("%d %s\n", status, respBody)
	if status >= 300 {
		os.Exit(1)
	}
}

func readBody(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func replay(url string, body []byte, header string) (int, string, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.HeaderName, header)

	resp, err := httpclient.NewClientWithTimeout(30 * time.Second).Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return resp.StatusCode, "", err
	}
	return resp.StatusCode, string(respBody), nil
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sign: "+format+"\n", args...)
	os.Exit(2)
}
