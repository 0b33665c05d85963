package serializer

import (
	"github.com/ValentinKolb/udsrpc/rpc/common"
	jsoniter "github.com/json-iterator/go"
)

// NewJSONIterSerializer creates a new serializer using json-iterator.
// It is configured to be compatible with encoding/json (sorted map keys,
// HTML escaping), so both serializers produce the same bytes on the wire
func NewJSONIterSerializer() IRPCSerializer {
	return &jsonIterSerializerImpl{
		api: jsoniter.ConfigCompatibleWithStandardLibrary,
	}
}

// jsonIterSerializerImpl implements the IRPCSerializer interface using json-iterator
type jsonIterSerializerImpl struct {
	api jsoniter.API
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonIterSerializerImpl) Marshal(v any) ([]byte, error) {
	return j.api.Marshal(v)
}

func (j jsonIterSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	return j.api.Marshal(msg)
}

func (j jsonIterSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	return j.api.Unmarshal(b, msg)
}
