package mcengine

import (
	"encoding/base64"
	"encoding/json"
)

// StatusDocument is the JSON body of StatusResponse.
type StatusDocument struct {
	Version     StatusVersion     `json:"version"`
	Players     StatusPlayers     `json:"players"`
	Description StatusDescription `json:"description"`
	Favicon     string            `json:"favicon,omitempty"`
}

type StatusVersion struct {
	Name     string `json:"name"`
	Protocol int32  `json:"protocol"`
}

type StatusPlayers struct {
	Max    int            `json:"max"`
	Online int            `json:"online"`
	Sample []PlayerSample `json:"sample,omitempty"`
}

type PlayerSample struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

type StatusDescription struct {
	Text string `json:"text"`
}

func (d StatusDocument) Marshal() (string, error) {
	b, err := json.Marshal(d)
	return string(b), err
}

func ParseStatusDocument(s string) (StatusDocument, error) {
	var d StatusDocument
	err := json.Unmarshal([]byte(s), &d)
	return d, err
}

// StatusInfo is what the server knows when a status request arrives.
type StatusInfo struct {
	Protocol int32 // as sent in the client's Handshake; 0 for legacy pings
	Online   int
	Sample   []PlayerSample
}

// StatusProvider builds the status document for one request. The server
// fills in Version when the provider leaves it empty.
type StatusProvider interface {
	Status(info StatusInfo) StatusDocument
}

type StatusFunc func(info StatusInfo) StatusDocument

func (f StatusFunc) Status(info StatusInfo) StatusDocument {
	return f(info)
}

// maxStatusSample is how many players the vanilla client will show.
const maxStatusSample = 12

// StaticStatus reports a fixed description and player cap alongside the
// live player count.
type StaticStatus struct {
	Description string
	MaxPlayers  int
	Favicon     string // data URI, see FaviconDataURI
}

func (s StaticStatus) Status(info StatusInfo) StatusDocument {
	sample := info.Sample
	if len(sample) > maxStatusSample {
		sample = sample[:maxStatusSample]
	}
	return StatusDocument{
		Players: StatusPlayers{
			Max:    s.MaxPlayers,
			Online: info.Online,
			Sample: sample,
		},
		Description: StatusDescription{Text: s.Description},
		Favicon:     s.Favicon,
	}
}

// FaviconDataURI encodes a PNG image for StatusDocument.Favicon.
func FaviconDataURI(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}
