package models

type SkillsAndInterests struct {
	Skills    []string `json:"skills" bson:"skills"`
	Interests []string `json:"interests" bson:"interests"`
}

// SkillsDoc is the per-user `skills` document.
type SkillsDoc struct {
	DocMeta            `bson:",inline"`
	SkillsAndInterests *SkillsAndInterests `json:"skillsAndInterests" bson:"skillsAndInterests"`
}
