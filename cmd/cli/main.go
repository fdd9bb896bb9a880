package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"shinydex/internal/grpcserver"
	"shinydex/internal/logger"
)

const defaultBaseURL = "http://localhost:8080"

type tokenData struct {
	Token string `json:"token"`
}

type authResponse struct {
	Token string `json:"token"`
}

type cli struct {
	client    *http.Client
	baseURL   string
	tokenPath string
	log       zerolog.Logger
}

func main() {
	global := flag.NewFlagSet("shinydex", flag.ExitOnError)
	baseURL := global.String("api", defaultBaseURL, "API base URL")
	tokenPath := global.String("token", defaultTokenPath(), "token file path")
	_ = global.Parse(os.Args[1:])

	args := global.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := &cli{
		client:    &http.Client{Timeout: 15 * time.Second},
		baseURL:   strings.TrimRight(*baseURL, "/"),
		tokenPath: *tokenPath,
		log:       logger.Console(os.Getenv("LOG_LEVEL")),
	}

	ctx := context.Background()
	cmd := args[0]
	sub := ""
	rest := []string{}
	if len(args) > 1 {
		sub = args[1]
		rest = args[2:]
	}

	var err error
	switch cmd {
	case "auth":
		err = c.auth(ctx, sub, rest)
	case "pokemon":
		err = c.pokemon(ctx, sub, rest)
	case "captures":
		err = c.captures(ctx, sub, rest)
	case "sync":
		err = c.sync(ctx, sub, rest)
	case "events":
		err = c.events(sub)
	case "rpc":
		err = c.rpc(ctx, sub, rest)
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		c.log.Fatal().Err(err).Str("command", cmd+" "+sub).Msg("failed")
	}
}

func (c *cli) auth(ctx context.Context, sub string, args []string) error {
	switch sub {
	case "login":
		fs := flag.NewFlagSet("auth login", flag.ExitOnError)
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *email == "" || *password == "" {
			return errors.New("email and password are required")
		}

		var resp authResponse
		payload := map[string]string{"email": *email, "password": *password}
		if err := c.doJSON(ctx, http.MethodPost, "/auth/login", "", payload, &resp); err != nil {
			return err
		}
		if err := saveToken(c.tokenPath, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Println("logged in")
	case "register":
		fs := flag.NewFlagSet("auth register", flag.ExitOnError)
		username := fs.String("username", "", "username")
		email := fs.String("email", "", "email address")
		password := fs.String("password", "", "password")
		_ = fs.Parse(args)
		if *username == "" || *email == "" || *password == "" {
			return errors.New("username, email, and password are required")
		}

		var resp authResponse
		payload := map[string]string{"username": *username, "email": *email, "password": *password}
		if err := c.doJSON(ctx, http.MethodPost, "/auth/register", "", payload, &resp); err != nil {
			return err
		}
		if err := saveToken(c.tokenPath, resp.Token); err != nil {
			return fmt.Errorf("save token: %w", err)
		}
		fmt.Println("registered and logged in")
	case "logout":
		if token, err := readToken(c.tokenPath); err == nil && token != "" {
			// revoke server side too; a stale local token is still removed
			if err := c.doJSON(ctx, http.MethodPost, "/auth/logout", token, nil, nil); err != nil {
				c.log.Warn().Err(err).Msg("server logout failed")
			}
		}
		if err := clearToken(c.tokenPath); err != nil {
			return err
		}
		fmt.Println("logged out")
	case "me":
		var resp any
		if err := c.doJSON(ctx, http.MethodGet, "/auth/me", c.mustToken(), nil, &resp); err != nil {
			return err
		}
		printJSON(resp)
	default:
		return errors.New("usage: shinydex auth <login|register|logout|me>")
	}
	return nil
}

func (c *cli) pokemon(ctx context.Context, sub string, args []string) error {
	var resp any
	switch sub {
	case "list":
		fs := flag.NewFlagSet("pokemon list", flag.ExitOnError)
		gens := fs.String("gen", "", "comma-separated generations")
		search := fs.String("search", "", "name substring")
		typ := fs.String("type", "", "type name")
		page := fs.Int("page", 1, "page")
		limit := fs.Int("limit", 20, "page size")
		_ = fs.Parse(args)

		q := url.Values{}
		if *gens != "" {
			q.Set("generation", *gens)
		}
		if *search != "" {
			q.Set("search", *search)
		}
		if *typ != "" {
			q.Set("type", *typ)
		}
		q.Set("page", strconv.Itoa(*page))
		q.Set("limit", strconv.Itoa(*limit))
		if err := c.doJSON(ctx, http.MethodGet, "/pokemon?"+q.Encode(), "", nil, &resp); err != nil {
			return err
		}
	case "get":
		fs := flag.NewFlagSet("pokemon get", flag.ExitOnError)
		id := fs.Int("id", 0, "pokemon id")
		_ = fs.Parse(args)
		if *id <= 0 {
			return errors.New("pokemon id is required")
		}
		if err := c.doJSON(ctx, http.MethodGet, "/pokemon/"+strconv.Itoa(*id), "", nil, &resp); err != nil {
			return err
		}
	case "types":
		if err := c.doJSON(ctx, http.MethodGet, "/pokemon/types", "", nil, &resp); err != nil {
			return err
		}
	case "generations":
		if err := c.doJSON(ctx, http.MethodGet, "/pokemon/generations", "", nil, &resp); err != nil {
			return err
		}
	case "search":
		fs := flag.NewFlagSet("pokemon search", flag.ExitOnError)
		q := fs.String("q", "", "name or id")
		_ = fs.Parse(args)
		if strings.TrimSpace(*q) == "" {
			return errors.New("query is required")
		}
		if err := c.doJSON(ctx, http.MethodGet, "/pokemon/search?q="+url.QueryEscape(*q), "", nil, &resp); err != nil {
			return err
		}
	default:
		return errors.New("usage: shinydex pokemon <list|get|types|generations|search>")
	}
	printJSON(resp)
	return nil
}

func (c *cli) captures(ctx context.Context, sub string, args []string) error {
	token := c.mustToken()
	var resp any
	switch sub {
	case "list":
		if err := c.doJSON(ctx, http.MethodGet, "/captures", token, nil, &resp); err != nil {
			return err
		}
	case "add", "release", "check":
		fs := flag.NewFlagSet("captures "+sub, flag.ExitOnError)
		id := fs.Int("id", 0, "pokemon id")
		_ = fs.Parse(args)
		if *id <= 0 {
			return errors.New("pokemon id is required")
		}
		var err error
		switch sub {
		case "add":
			err = c.doJSON(ctx, http.MethodPost, "/captures", token, map[string]int{"pokemon_id": *id}, &resp)
		case "release":
			err = c.doJSON(ctx, http.MethodDelete, "/captures/"+strconv.Itoa(*id), token, nil, &resp)
		default:
			err = c.doJSON(ctx, http.MethodGet, "/captures/"+strconv.Itoa(*id), token, nil, &resp)
		}
		if err != nil {
			return err
		}
	case "stats":
		if err := c.doJSON(ctx, http.MethodGet, "/captures/stats", token, nil, &resp); err != nil {
			return err
		}
	default:
		return errors.New("usage: shinydex captures <list|add|release|check|stats>")
	}
	printJSON(resp)
	return nil
}

func (c *cli) sync(ctx context.Context, sub string, args []string) error {
	token := c.mustToken()
	var resp any
	switch sub {
	case "start":
		fs := flag.NewFlagSet("sync start", flag.ExitOnError)
		gen := fs.Int("gen", 0, "generation, 0 for all")
		_ = fs.Parse(args)
		if err := c.doJSON(ctx, http.MethodPost, "/sync", token, map[string]int{"generation": *gen}, &resp); err != nil {
			return err
		}
	case "status":
		if err := c.doJSON(ctx, http.MethodGet, "/sync/status", token, nil, &resp); err != nil {
			return err
		}
	default:
		return errors.New("usage: shinydex sync <start|status>")
	}
	printJSON(resp)
	return nil
}

func (c *cli) events(sub string) error {
	if sub != "tail" {
		return errors.New("usage: shinydex events tail")
	}
	wsURL, err := websocketURL(c.baseURL, "/ws")
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.log.Info().Str("url", wsURL).Msg("connected")
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}

// rpc calls the Connect surface directly, mostly useful to check it end to end.
func (c *cli) rpc(ctx context.Context, sub string, args []string) error {
	var opts []connect.ClientOption
	if token, err := readToken(c.tokenPath); err == nil && token != "" {
		opts = append(opts, connect.WithInterceptors(bearerInterceptor(token)))
	}
	client := grpcserver.NewClient(c.client, c.baseURL, opts...)

	var (
		out *structpb.Struct
		err error
	)
	switch sub {
	case "get":
		fs := flag.NewFlagSet("rpc get", flag.ExitOnError)
		id := fs.Int("id", 0, "pokemon id")
		_ = fs.Parse(args)
		req, _ := structpb.NewStruct(map[string]any{"id": *id})
		out, err = client.GetPokemon(ctx, req)
	case "list":
		fs := flag.NewFlagSet("rpc list", flag.ExitOnError)
		gen := fs.Int("gen", 0, "generation")
		limit := fs.Int("limit", 20, "page size")
		_ = fs.Parse(args)
		m := map[string]any{"limit": *limit}
		if *gen > 0 {
			m["generations"] = []any{*gen}
		}
		req, _ := structpb.NewStruct(m)
		out, err = client.ListPokemon(ctx, req)
	case "captures":
		out, err = client.ListCaptures(ctx, &structpb.Struct{})
	default:
		return errors.New("usage: shinydex rpc <get|list|captures>")
	}
	if err != nil {
		return err
	}

	b, err := protojson.MarshalOptions{Multiline: true}.Marshal(out)
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func bearerInterceptor(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Authorization", "Bearer "+token)
			return next(ctx, req)
		}
	}
}

func (c *cli) doJSON(ctx context.Context, method, path, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func printJSON(v any) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "json:", err)
		return
	}
	fmt.Println(string(b))
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.shinydex-token.json"
	}
	return filepath.Join(home, ".shinydex", "token.json")
}

func saveToken(path, token string) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tokenData{Token: token}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var td tokenData
	if err := json.Unmarshal(data, &td); err != nil {
		return "", err
	}
	return strings.TrimSpace(td.Token), nil
}

func (c *cli) mustToken() string {
	token, err := readToken(c.tokenPath)
	if err != nil || token == "" {
		c.log.Fatal().Err(err).Msg("not logged in, run: shinydex auth login")
	}
	return token
}

func clearToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{Scheme: scheme, Host: u.Host, Path: path}).String(), nil
}

func printUsage() {
	fmt.Println("shinydex [-api URL] [-token PATH] <command> [subcommand] [flags]")
	fmt.Println("commands:")
	fmt.Println("  auth login|register|logout|me")
	fmt.Println("  pokemon list|get|types|generations|search")
	fmt.Println("  captures list|add|release|check|stats")
	fmt.Println("  sync start|status")
	fmt.Println("  events tail")
	fmt.Println("  rpc get|list|captures")
}
