package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// stateCmd and saveCmd talk to a running server's loopback admin endpoints.
func stateCmd(args []string) {
	exitOn(remoteCmd(os.Stdout, "state", http.MethodGet, "/admin/v1/state", 5*time.Second, args))
}

func saveCmd(args []string) {
	exitOn(remoteCmd(os.Stdout, "save", http.MethodPost, "/admin/v1/save", 10*time.Second, args))
}

func remoteCmd(out io.Writer, name, method, path string, timeout time.Duration, args []string) error {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	baseURL := fs.String("url", "http://127.0.0.1:8080", "server base url")
	if err := fs.Parse(args); err != nil {
		return usageError{err.Error()}
	}

	u := strings.TrimRight(strings.TrimSpace(*baseURL), "/") + path
	req, err := http.NewRequest(method, u, nil)
	if err != nil {
		return usageError{err.Error()}
	}
	cl := &http.Client{Timeout: timeout}
	resp, err := cl.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	fmt.Fprintln(out, strings.TrimSpace(string(b)))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	return nil
}
