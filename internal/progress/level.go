package progress

// levelTier is one row of the level threshold table.
type levelTier struct {
	MinPoints int
	Name      string
}

// levelTiers is the ascending points → level table.
var levelTiers = []levelTier{
	{0, "Novice"},
	{500, "Apprentice"},
	{1500, "Practitioner"},
	{3000, "Scholar"},
	{5000, "Expert"},
	{10000, "Master"},
}

// Level is the derived rank for a point total. Never stored.
type Level struct {
	Name         string `json:"name"`
	Number       int    `json:"number"` // 1-based tier index
	MinPoints    int    `json:"min_points"`
	PointsToNext int    `json:"points_to_next"` // 0 at the top tier
}

// CalculateLevel maps a cumulative point total onto the level table.
func CalculateLevel(totalPoints int) Level {
	tier := 0
	for i, t := range levelTiers {
		if totalPoints >= t.MinPoints {
			tier = i
		}
	}

	lvl := Level{
		Name:      levelTiers[tier].Name,
		Number:    tier + 1,
		MinPoints: levelTiers[tier].MinPoints,
	}
	if tier+1 < len(levelTiers) {
		lvl.PointsToNext = levelTiers[tier+1].MinPoints - totalPoints
	}
	return lvl
}
