package wt

import (
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Clock abstracts time retrieval so screen logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts entry id generation so tests are deterministic.
type IDGenerator interface {
	New() int64
}

// SnowflakeGenerator produces time-ordered int64 ids that stay unique when
// several entries are created within the same millisecond.
type SnowflakeGenerator struct {
	node *snowflake.Node
}

// NewSnowflakeGenerator creates a generator for the given node number (0-1023).
func NewSnowflakeGenerator(node int64) (*SnowflakeGenerator, error) {
	n, err := snowflake.NewNode(node)
	if err != nil {
		return nil, fmt.Errorf("creating snowflake node %d: %w", node, err)
	}
	return &SnowflakeGenerator{node: n}, nil
}

func (g *SnowflakeGenerator) New() int64 { return g.node.Generate().Int64() }
