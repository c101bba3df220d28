package models

type Speaker string

const (
	SpeakerPlayer  Speaker = "player"
	SpeakerSuspect Speaker = "suspect"
)

// Message is one line of an interrogation transcript.
type Message struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// InterrogationRequest is everything the oracle needs to answer a question in character.
type InterrogationRequest struct {
	CaseDescription string
	Suspect         Suspect
	Message         string
	// Transcript holds the earlier turns with the same suspect, oldest first.
	Transcript []Message
	Language   Language
}
