package record

import "encoding/json"

// jsonRecord is the on-the-wire shape for JSONPacker, mirroring the
// teacher's storeData/Document split (storage/internal/json_storage.go):
// a plain struct marshaled with the standard library, values kept as raw
// bytes rather than strings so binary attribute values survive the round
// trip untouched.
type jsonRecord struct {
	DN       string              `json:"dn"`
	GUID     []byte              `json:"guid,omitempty"`
	Elements []jsonRecordElement `json:"elements,omitempty"`
}

type jsonRecordElement struct {
	Name           string   `json:"name"`
	Values         [][]byte `json:"values,omitempty"`
	ForceUnique    bool     `json:"force_unique,omitempty"`
	AllowDuplicate bool     `json:"allow_duplicate,omitempty"`
}

// JSONPacker is the default Packer, serializing records as JSON. It is
// intentionally simple — the spec treats the packer as an external
// collaborator whose internal format the core never inspects.
type JSONPacker struct{}

// Pack implements Packer.
func (JSONPacker) Pack(r *Record) ([]byte, error) {
	jr := jsonRecord{DN: r.DN, GUID: r.GUID}
	for _, el := range r.Elements {
		jr.Elements = append(jr.Elements, jsonRecordElement{
			Name:           el.Name,
			Values:         el.Values,
			ForceUnique:    el.ForceUnique,
			AllowDuplicate: el.AllowDuplicate,
		})
	}
	return json.Marshal(jr)
}

// Unpack implements Packer.
func (JSONPacker) Unpack(blob []byte) (*Record, error) {
	var jr jsonRecord
	if err := json.Unmarshal(blob, &jr); err != nil {
		return nil, err
	}
	r := &Record{DN: jr.DN, GUID: jr.GUID}
	for _, el := range jr.Elements {
		r.Elements = append(r.Elements, Element{
			Name:           el.Name,
			Values:         el.Values,
			ForceUnique:    el.ForceUnique,
			AllowDuplicate: el.AllowDuplicate,
		})
	}
	return r, nil
}
