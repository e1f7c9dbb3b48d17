package codec

// Reserved protocol words. CloseSentinel is a complete message on its own;
// QueryTotalData as the first query name requests a full snapshot, and the
// answer carries the snapshot under the same name.
const (
	CloseSentinel  = "closing"
	QueryTotalData = "total_data"

	fieldRequestKey  = "requestKey"
	fieldResponseKey = "responseKey"
	fieldQuery       = "query"
)

// --------------------------------------------------------------------------
// Message Kind
// --------------------------------------------------------------------------

// Kind discriminates the three wire shapes.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindQuery
	KindResponse
	KindClose
)

func (k Kind) String() string {
	switch k {
	case KindQuery:
		return "query"
	case KindResponse:
		return "response"
	case KindClose:
		return "close"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single decoded wire message. Which fields are used
// depends on the Kind: a Query carries RequestKey and Query, a Response
// carries ResponseKey and Values, a Close carries nothing.
type Message struct {
	Kind Kind

	// Query fields
	RequestKey uint8
	Query      []string

	// Response fields. Values holds the answered name/value pairs, the
	// correlation key is kept separately and folded into the encoded object
	// by the codec.
	ResponseKey uint8
	Values      map[string]any
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewQuery creates a Query message asking for the given names.
func NewQuery(requestKey uint8, names []string) Message {
	return Message{
		Kind:       KindQuery,
		RequestKey: requestKey,
		Query:      names,
	}
}

// NewResponse creates a Response message correlated to a prior Query.
func NewResponse(responseKey uint8, values map[string]any) Message {
	return Message{
		Kind:        KindResponse,
		ResponseKey: responseKey,
		Values:      values,
	}
}

// NewClose creates the Close sentinel message.
func NewClose() Message {
	return Message{Kind: KindClose}
}
