package bracket

type ParticipantType string

const (
	PlayerParticipant ParticipantType = "player"
	TeamParticipant   ParticipantType = "team"
)

type Participant struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      ParticipantType   `json:"type"`
	Seed      *int              `json:"seed,omitempty"`
	Rating    *float64          `json:"rating,omitempty"`
	AvatarURL string            `json:"avatarUrl,omitempty"`
	Org       string            `json:"org,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (p Participant) clone() Participant {
	out := p
	if p.Seed != nil {
		seed := *p.Seed
		out.Seed = &seed
	}
	if p.Rating != nil {
		rating := *p.Rating
		out.Rating = &rating
	}
	out.Metadata = cloneMetadata(p.Metadata)
	return out
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
