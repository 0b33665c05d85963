package serializer

import "github.com/ValentinKolb/udsrpc/rpc/common"

// IRPCSerializer is the interface for the JSON codec used by the transports
type IRPCSerializer interface {
	// Marshal encodes an arbitrary content value as compact JSON
	Marshal(v any) ([]byte, error)
	// Serialize serializes a Message into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize deserializes a byte array into a Message
	// It takes a byte array and a pointer to a Message as parameters
	// It returns an error if any
	Deserialize(b []byte, msg *common.Message) error
}
