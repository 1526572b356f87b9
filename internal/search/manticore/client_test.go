package manticore

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tileware/orderhub/internal/config"
)

func testConfig() config.Search {
	return config.Search{
		Enabled:        true,
		Host:           "127.0.0.1",
		Port:           9306,
		Index:          "orders",
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
	}
}

// fakeDaemon accepts one connection, records the received statement, writes
// the canned response and closes.
func fakeDaemon(t *testing.T, response string, received *string) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 4096)
		n, _ := conn.Read(buf)
		if received != nil {
			*received = string(buf[:n])
		}
		_, _ = conn.Write([]byte(response))
	}()

	return ln.Addr().String()
}

func clientFor(addr string) *Client {
	c := NewClient(testConfig())
	c.addr = addr
	return c
}

func TestSearchIDs(t *testing.T) {
	response := strings.Join([]string{
		"+------+--------+",
		"| id   | weight |",
		"+------+--------+",
		"42 1204",
		"7 1100",
		"+------+--------+",
		"2 rows in set (0.00 sec)",
		"",
	}, "\n")

	var received string
	addr := fakeDaemon(t, response, &received)

	ids, err := clientFor(addr).SearchIDs(context.Background(), "*john*", 0, 20)
	require.NoError(t, err)
	assert.Equal(t, []int64{42, 7}, ids)
	assert.Equal(t, "SELECT * FROM orders WHERE MATCH('*john*') LIMIT 0, 20\n", received)
}

func TestCount(t *testing.T) {
	addr := fakeDaemon(t, "COUNT(*)\n37\n1 row in set\n", nil)

	total, err := clientFor(addr).Count(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, 37, total)
}

func TestCountNoInteger(t *testing.T) {
	addr := fakeDaemon(t, "empty result set\n", nil)

	_, err := clientFor(addr).Count(context.Background(), "acme")
	assert.Error(t, err)
}

func TestSearchIDsConnectFailure(t *testing.T) {
	c := NewClient(testConfig(), WithDialFunc(func(ctx context.Context, addr string) (net.Conn, error) {
		return nil, net.ErrClosed
	}))

	_, err := c.SearchIDs(context.Background(), "john", 0, 20)
	assert.Error(t, err)
}

func TestInsertChecksResponse(t *testing.T) {
	addr := fakeDaemon(t, "Query OK, 1 row affected\n", nil)
	err := clientFor(addr).Insert(context.Background(), Document{ID: 1, Number: "ORD-2024-001"})
	assert.NoError(t, err)

	addr = fakeDaemon(t, "ERROR 1064: syntax error\n", nil)
	err = clientFor(addr).Insert(context.Background(), Document{ID: 1})
	assert.Error(t, err)
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `o\'brien`, Escape("o'brien"))
	assert.Equal(t, `say \"hi\"`, Escape(`say "hi"`))
	assert.Equal(t, `a\\b`, Escape(`a\b`))
	assert.Equal(t, "plain", Escape("plain"))
}

func TestParseIDsSkipsBorderLines(t *testing.T) {
	ids := ParseIDs("+----+\n| id |\n+----+\n- note\n15 900\nnot-a-number row\n")
	assert.Equal(t, []int64{15}, ids)

	assert.Nil(t, ParseIDs(""))
	assert.Nil(t, ParseIDs("+----+\n| 12 |\n+----+"))
}
