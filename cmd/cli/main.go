package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const defaultBaseURL = "http://localhost:8080"

var log = logrus.New()

func main() {
	global := flag.NewFlagSet("bookreviews", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	if err := global.Parse(os.Args[1:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	args := global.Args()
	if len(args) < 2 {
		printUsage()
		os.Exit(1)
	}

	token, err := readToken(*tokenPath)
	if err != nil {
		log.Fatalf("read token: %v", err)
	}
	client := &apiClient{BaseURL: *baseURL, Token: token, HTTP: &http.Client{Timeout: 15 * time.Second}}
	ctx := context.Background()

	cmd, sub, rest := args[0], args[1], args[2:]
	switch cmd {
	case "auth":
		handleAuth(ctx, client, *tokenPath, sub, rest)
	case "books":
		handleCollection(ctx, client, "books", sub, rest, bookFields)
	case "users":
		handleCollection(ctx, client, "users", sub, rest, userFields)
	case "watch":
		handleWatch(*baseURL, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
}

func handleAuth(ctx context.Context, client *apiClient, tokenPath, sub string, args []string) {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			log.Fatal("email and password are required")
		}

		var resp tokenData
		payload := map[string]string{"email": *email, "password": *password}
		if err := client.do(ctx, http.MethodPost, "/auth/login", payload, &resp); err != nil {
			log.Fatalf("login failed: %v", err)
		}
		if err := saveToken(tokenPath, resp.Token); err != nil {
			log.Fatalf("save token: %v", err)
		}
		fmt.Println("logged in")
	case "logout":
		if err := clearToken(tokenPath); err != nil {
			log.Fatalf("logout failed: %v", err)
		}
		fmt.Println("logged out")
	default:
		log.Fatal("usage: bookreviews auth <login|logout>")
	}
}

type field struct {
	name    string
	usage   string
	numeric bool
}

var bookFields = []field{
	{name: "title", usage: "book title"},
	{name: "author", usage: "book author"},
	{name: "rating", usage: "rating from 1 to 5", numeric: true},
	{name: "review", usage: "review text"},
	{name: "genre", usage: "genre (create only)"},
	{name: "userId", usage: "owner id (create only)"},
}

var userFields = []field{
	{name: "username", usage: "user name"},
	{name: "email", usage: "email address"},
	{name: "password", usage: "password (create only)"},
}

func handleCollection(ctx context.Context, client *apiClient, name, sub string, args []string, fields []field) {
	fs := flag.NewFlagSet(name+" "+sub, flag.ExitOnError)
	id := fs.String("id", "", "document id")
	values := make(map[string]*string, len(fields))
	for _, f := range fields {
		values[f.name] = fs.String(f.name, "", f.usage)
	}
	_ = fs.Parse(args)

	payload := func() map[string]any {
		p := make(map[string]any, len(fields))
		for _, f := range fields {
			v := *values[f.name]
			if v == "" {
				continue
			}
			if n, err := strconv.Atoi(v); err == nil && f.numeric {
				p[f.name] = n
				continue
			}
			p[f.name] = v
		}
		return p
	}
	needID := func() {
		if *id == "" {
			log.Fatalf("%s %s: -id is required", name, sub)
		}
	}

	var (
		out any
		err error
	)
	switch sub {
	case "list":
		var items []map[string]any
		err = client.do(ctx, http.MethodGet, collectionPath(name, ""), nil, &items)
		out = items
	case "get":
		needID()
		var item map[string]any
		err = client.do(ctx, http.MethodGet, collectionPath(name, *id), nil, &item)
		out = item
	case "create":
		var created map[string]any
		err = client.do(ctx, http.MethodPost, collectionPath(name, ""), payload(), &created)
		out = created
	case "update":
		needID()
		err = client.do(ctx, http.MethodPut, collectionPath(name, *id), payload(), nil)
		out = map[string]string{"status": "updated"}
	case "delete":
		needID()
		var deleted map[string]any
		err = client.do(ctx, http.MethodDelete, collectionPath(name, *id), nil, &deleted)
		out = deleted
	default:
		log.Fatalf("usage: bookreviews %s <list|get|create|update|delete>", name)
	}
	if err != nil {
		log.Fatalf("%s %s failed: %v", name, sub, err)
	}
	printJSON(os.Stdout, out)
}

func handleWatch(baseURL, sub string, args []string) {
	switch sub {
	case "ws":
		wsURL, err := websocketURL(baseURL, "/ws")
		if err != nil {
			log.Fatalf("invalid base url: %v", err)
		}
		if err := runWebSocket(wsURL); err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	case "tcp":
		fs := flag.NewFlagSet("watch tcp", flag.ExitOnError)
		addr := fs.String("addr", "127.0.0.1:7070", "TCP change feed address")
		reconnect := fs.Bool("reconnect", true, "redial after a disconnect")
		_ = fs.Parse(args)
		for {
			err := runTCP(*addr)
			if !*reconnect {
				if err != nil {
					log.Fatalf("watch failed: %v", err)
				}
				return
			}
			log.WithError(err).Warn("change feed disconnected, retrying")
			time.Sleep(time.Second)
		}
	default:
		log.Fatal("usage: bookreviews watch <ws|tcp>")
	}
}

func runTCP(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	log.Infof("connected to %s", addr)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		printEvent(os.Stdout, sc.Bytes())
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return io.EOF
}

func runWebSocket(wsURL string) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	log.Infof("connected to %s", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		printEvent(os.Stdout, msg)
	}
}

// printEvent pretty prints a JSON line, or echoes it raw when it is not JSON.
func printEvent(w io.Writer, line []byte) {
	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		fmt.Fprintln(w, string(line))
		return
	}
	printJSON(w, obj)
}

func printJSON(w io.Writer, v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("json: %v", err)
	}
	fmt.Fprintln(w, string(b))
}

func printUsage() {
	fmt.Println("bookreviews [-api url] [-token path] <command> <subcommand> [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|logout")
	fmt.Println("  books list|get|create|update|delete")
	fmt.Println("  users list|get|create|update|delete")
	fmt.Println("  watch ws|tcp")
}
