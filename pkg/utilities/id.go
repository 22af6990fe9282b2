package utilities

import (
	"crypto/rand"
	"math/big"
	"os"
	"strconv"
	"sync"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

// NewKSUID generates a new globally unique KSUID string.
// Used for request correlation ids.
func NewKSUID() string {
	return ksuid.New().String()
}

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewSnowflakeID generates a snowflake int64 used for surrogate row ids.
// The node id comes from the SNOWFLAKE_NODE env var, defaulting to 1.
func NewSnowflakeID() int64 {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v := os.Getenv("SNOWFLAKE_NODE"); v != "" {
			if parsed, err := strconv.ParseInt(v, 10, 64); err == nil {
				nodeID = parsed
			}
		}
		n, err := snowflake.NewNode(nodeID)
		if err != nil {
			// node ids outside [0,1023] are a config error; fall back to 0
			n, _ = snowflake.NewNode(0)
		}
		node = n
	})
	return node.Generate().Int64()
}

const leadTokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// LeadTokenLength is the length of the human-shareable lead identifier.
const LeadTokenLength = 8

// NewLeadToken generates an 8-character uppercase alphanumeric token.
// Collisions are possible in principle; the repository retries the insert
// on a unique violation.
func NewLeadToken() string {
	max := big.NewInt(int64(len(leadTokenAlphabet)))
	b := make([]byte, LeadTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken
			panic(err)
		}
		b[i] = leadTokenAlphabet[n.Int64()]
	}
	return string(b)
}
