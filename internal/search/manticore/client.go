// Package manticore speaks the search daemon's SQL-over-socket line
// protocol: one statement terminated by a newline, a tabular text response
// read until end-of-stream. The daemon is best-effort, never authoritative;
// callers must treat every error as a signal to fall back.
package manticore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/tileware/orderhub/internal/config"
)

// DialFunc opens the raw connection; injectable for tests.
type DialFunc func(ctx context.Context, addr string) (net.Conn, error)

// Client issues statements against a single index.
type Client struct {
	addr           string
	index          string
	connectTimeout time.Duration
	readTimeout    time.Duration
	dial           DialFunc
}

// Option mutates the client during construction.
type Option func(*Client)

// WithDialFunc overrides the connection factory.
func WithDialFunc(dial DialFunc) Option {
	return func(c *Client) {
		c.dial = dial
	}
}

// NewClient builds a client from the search configuration.
func NewClient(cfg config.Search, opts ...Option) *Client {
	c := &Client{
		addr:           net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		index:          cfg.Index,
		connectTimeout: cfg.ConnectTimeout,
		readTimeout:    cfg.ReadTimeout,
	}
	c.dial = func(ctx context.Context, addr string) (net.Conn, error) {
		d := net.Dialer{Timeout: c.connectTimeout}
		return d.DialContext(ctx, "tcp", addr)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Index returns the configured index name.
func (c *Client) Index() string {
	return c.index
}

// roundTrip writes a single statement and reads the response to EOF.
func (c *Client) roundTrip(ctx context.Context, stmt string) (string, error) {
	conn, err := c.dial(ctx, c.addr)
	if err != nil {
		return "", fmt.Errorf("connect %s: %w", c.addr, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else if c.readTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(c.readTimeout))
	}

	if _, err := io.WriteString(conn, stmt+"\n"); err != nil {
		return "", fmt.Errorf("send statement: %w", err)
	}

	var sb strings.Builder
	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadString('\n')
		sb.WriteString(line)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read response: %w", err)
		}
	}
	return sb.String(), nil
}

// SearchIDs runs a MATCH query with offset/limit pagination and returns the
// matching document ids in response order.
func (c *Client) SearchIDs(ctx context.Context, query string, offset, limit int) ([]int64, error) {
	stmt := fmt.Sprintf("SELECT * FROM %s WHERE MATCH('%s') LIMIT %d, %d", c.index, Escape(query), offset, limit)
	response, err := c.roundTrip(ctx, stmt)
	if err != nil {
		return nil, err
	}
	return ParseIDs(response), nil
}

// Count runs a COUNT(*) MATCH query and parses the first integer in the
// response text.
func (c *Client) Count(ctx context.Context, query string) (int, error) {
	stmt := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE MATCH('%s')", c.index, Escape(query))
	response, err := c.roundTrip(ctx, stmt)
	if err != nil {
		return 0, err
	}
	return ParseCount(response)
}

// Insert writes a document into the index. Re-inserting the same id is the
// daemon's upsert; the operation is idempotent for our purposes.
func (c *Client) Insert(ctx context.Context, doc Document) error {
	cols, vals := doc.columns()
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", c.index, strings.Join(cols, ", "), strings.Join(vals, ", "))
	response, err := c.roundTrip(ctx, stmt)
	if err != nil {
		return err
	}
	if !strings.Contains(response, "Query OK") {
		return fmt.Errorf("unexpected insert response: %s", strings.TrimSpace(response))
	}
	return nil
}

// Delete removes a document by id.
func (c *Client) Delete(ctx context.Context, id int64) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = %d", c.index, id)
	response, err := c.roundTrip(ctx, stmt)
	if err != nil {
		return err
	}
	if !strings.Contains(response, "Query OK") {
		return fmt.Errorf("unexpected delete response: %s", strings.TrimSpace(response))
	}
	return nil
}

// Document is an order flattened for indexing.
type Document struct {
	ID            int64
	ClientName    string
	ClientSurname string
	Email         string
	CompanyName   string
	Number        string
	Articles      string
	CreatedAt     int64
	Status        int
	Currency      string
	Hash          string
}

func (d Document) columns() (cols []string, vals []string) {
	add := func(col, val string) {
		cols = append(cols, col)
		vals = append(vals, val)
	}
	add("id", strconv.FormatInt(d.ID, 10))
	add("client_name", quote(d.ClientName))
	add("client_surname", quote(d.ClientSurname))
	add("email", quote(d.Email))
	add("company_name", quote(d.CompanyName))
	add("number", quote(d.Number))
	add("articles", quote(d.Articles))
	add("created_at", strconv.FormatInt(d.CreatedAt, 10))
	add("status", strconv.Itoa(d.Status))
	add("currency", quote(d.Currency))
	add("hash", quote(d.Hash))
	return cols, vals
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Escape neutralizes quoting and backslash characters inside a MATCH query.
func Escape(query string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `'`, `\'`)
	return r.Replace(query)
}

var intPattern = regexp.MustCompile(`\d+`)

// ParseIDs extracts document ids from a tabular response. Lines starting
// with +, - or | are table borders and are skipped; a data row carries the
// id as its leading whitespace-delimited token.
func ParseIDs(response string) []int64 {
	var ids []int64
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "+") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "|") {
			continue
		}
		token := strings.Fields(line)[0]
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ParseCount returns the first integer found anywhere in the response.
func ParseCount(response string) (int, error) {
	match := intPattern.FindString(response)
	if match == "" {
		return 0, fmt.Errorf("no count in response: %s", strings.TrimSpace(response))
	}
	return strconv.Atoi(match)
}
