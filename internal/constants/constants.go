package constants

import "time"

// DefaultGatewayEndpoint is the node-simulation gateway the console dials when
// nothing else is configured.
const DefaultGatewayEndpoint = "ws://localhost:8000/ws"

// GossipLogCapacity bounds the in-memory gossip stream.
const GossipLogCapacity = 50

// EventLogCapacity bounds the in-memory system event log.
const EventLogCapacity = 10

// SeverityThreshold is compared against |vector[0]| to flag a node as hot.
const SeverityThreshold = 0.8

// EventLineTimeFormat is the client-side timestamp prefix for system events.
const EventLineTimeFormat = "15:04:05"

// MinEventBusBufferSize is the minimum buffer per subscriber channel.
const MinEventBusBufferSize = 16

// DefaultEventBufferSize is the inbound queue between the socket reader and the UI.
const DefaultEventBufferSize = 256

// DefaultSendQueueSize bounds commands waiting for the socket writer.
const DefaultSendQueueSize = 64

// HandshakeTimeout caps the WebSocket opening handshake.
const HandshakeTimeout = 10 * time.Second

// WriteTimeout caps a single frame write.
const WriteTimeout = 5 * time.Second

// Reconnect backoff bounds.
const (
	BackoffInitial = 500 * time.Millisecond
	BackoffMax     = 10 * time.Second
	BackoffFactor  = 2.0
	BackoffJitter  = 0.2
)

// Dial circuit breaker settings.
const (
	BreakerConsecutiveFailures = 5
	BreakerOpenTimeout         = 30 * time.Second
)

// MaxFrameBytes caps a single inbound frame. A full TICK for a few hundred
// nodes stays well under this.
const MaxFrameBytes = 4 << 20

// JournalSearchLimit is the default number of archive hits shown in the UI.
const JournalSearchLimit = 20

// AssistantRequestTimeout caps a single rule-assistant round trip.
const AssistantRequestTimeout = 2 * time.Minute

// DefaultUpdateRule is the graph diffusion rule the gateway ships with. It is
// the initial editor content; the console never interprets it.
const DefaultUpdateRule = `# Graph Diffusion Equation: d/dt = D * Laplacian
# 'vector' = Self State (Current Node)
# 'neighbors' = List of Neighbor Vectors
# 'np' = NumPy Library

D = 0.1  # Diffusion Coefficient

if len(neighbors) > 0:
    # 1. Calculate Mean Field (Average of neighbors)
    neighbor_matrix = np.array(neighbors)
    mean_field = np.mean(neighbor_matrix, axis=0)

    # 2. Compute Laplacian (Mean - Self)
    laplacian = mean_field - vector

    # 3. Update State
    result = vector + (D * laplacian)
else:
    # No neighbors, strict conservation
    result = vector
`

// AssistantSystemPrompt frames requests sent to the rule assistant.
const AssistantSystemPrompt = `You write node update rules for a distributed state-vector simulation.

The rule is a Python snippet executed once per node per tick with these names in scope:
- vector: numpy array, the node's current state (3 components)
- neighbors: list of numpy arrays, the current states of the node's peers
- np: the numpy module

The snippet must assign the new state to a variable named result with the same shape as vector.
If it fails or leaves result unset, the node keeps its current state.

Reply with the Python source only. No prose, no markdown fences.`
