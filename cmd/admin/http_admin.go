package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

func stateCmd(args []string) {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	_ = fs.Parse(args)

	get(strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/state")
}

func fillsCmd(args []string) {
	fs := flag.NewFlagSet("fills", flag.ExitOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	actor := fs.String("actor", "", "actor id (required)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	if strings.TrimSpace(*actor) == "" {
		fmt.Fprintln(os.Stderr, "missing -actor")
		os.Exit(2)
	}
	q := url.Values{}
	q.Set("actor", *actor)
	q.Set("limit", strconv.Itoa(*limit))
	get(strings.TrimRight(strings.TrimSpace(*baseURL), "/") + "/admin/v1/fills?" + q.Encode())
}

func get(u string) {
	cl := &http.Client{Timeout: 5 * time.Second}
	resp, err := cl.Get(u)
	if err != nil {
		fmt.Fprintln(os.Stderr, "request:", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Println(string(b))
	if resp.StatusCode/100 != 2 {
		os.Exit(1)
	}
}
