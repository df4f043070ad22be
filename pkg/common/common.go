package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	NA       = "N/A"
	ENABLED  = "enabled"
	DISABLED = "disabled"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(nodeNumber())
	if err != nil {
		panic(err)
	}
}

// nodeNumber derives a snowflake worker id, overridable for multi-instance deployments.
func nodeNumber() int64 {
	if v := os.Getenv("PULSEWATCH_NODE_ID"); v != "" {
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil && n >= 0 && n <= 1023 {
			return n
		}
	}
	n, err := rand.Int(rand.Reader, big.NewInt(1024))
	if err != nil {
		return 1
	}
	return n.Int64()
}

// UUIDint64 returns a new snowflake id
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// UUID returns a new snowflake id in base36 string form
func UUID() string {
	return strings.ToLower(snowflakeNode.Generate().Base36())
}

// IsEmptyOrNA checks whether a value carries no usable content
func IsEmptyOrNA(val string) bool {
	val = strings.TrimSpace(val)
	return val == "" || strings.EqualFold(val, NA)
}

// IfEmptyStr returns defval when val is empty
func IfEmptyStr(val string, defval string) string {
	if strings.TrimSpace(val) == "" {
		return defval
	}
	return val
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// MakeDir creates dir when missing
func MakeDir(path string) {
	if !FileExists(path) {
		_ = os.MkdirAll(path, 0o755)
	}
}

// MillisSince returns elapsed wall time in milliseconds
func MillisSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
