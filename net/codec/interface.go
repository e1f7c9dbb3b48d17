package codec

// ICodec is the interface for all wire message codecs
type ICodec interface {
	// Encode encodes a Message into a byte array
	// It returns the encoded byte array and an error if any
	Encode(msg Message) ([]byte, error)
	// Decode decodes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Decode(b []byte, msg *Message) error
}
