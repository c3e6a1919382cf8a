package domain

import "github.com/google/uuid"

// Text encoding lets typed IDs appear as plain UUID strings in JSON and YAML.
// The nil ID encodes as "" and "" decodes to the nil ID.

func marshalID(u uuid.UUID) ([]byte, error) {
	if u == uuid.Nil {
		return []byte{}, nil
	}
	return []byte(u.String()), nil
}

func unmarshalID(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	return uuid.ParseBytes(b)
}

func (id StandardID) MarshalText() ([]byte, error)       { return marshalID(uuid.UUID(id)) }
func (id CategoryID) MarshalText() ([]byte, error)       { return marshalID(uuid.UUID(id)) }
func (id DomainID) MarshalText() ([]byte, error)         { return marshalID(uuid.UUID(id)) }
func (id RequirementID) MarshalText() ([]byte, error)    { return marshalID(uuid.UUID(id)) }
func (id ControlID) MarshalText() ([]byte, error)        { return marshalID(uuid.UUID(id)) }
func (id AuditQuestionID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id AssessmentToolID) MarshalText() ([]byte, error) { return marshalID(uuid.UUID(id)) }
func (id ZoneID) MarshalText() ([]byte, error)           { return marshalID(uuid.UUID(id)) }
func (id CertificationID) MarshalText() ([]byte, error)  { return marshalID(uuid.UUID(id)) }
func (id ActorID) MarshalText() ([]byte, error)          { return marshalID(uuid.UUID(id)) }

func (id *StandardID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = StandardID(u)
	return err
}

func (id *CategoryID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = CategoryID(u)
	return err
}

func (id *DomainID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = DomainID(u)
	return err
}

func (id *RequirementID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = RequirementID(u)
	return err
}

func (id *ControlID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = ControlID(u)
	return err
}

func (id *AuditQuestionID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = AuditQuestionID(u)
	return err
}

func (id *AssessmentToolID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = AssessmentToolID(u)
	return err
}

func (id *ZoneID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = ZoneID(u)
	return err
}

func (id *CertificationID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = CertificationID(u)
	return err
}

func (id *ActorID) UnmarshalText(b []byte) error {
	u, err := unmarshalID(b)
	*id = ActorID(u)
	return err
}
