package domain

// Category groups catalog tasks for display.
type Category string

const (
	CategoryFeeding  Category = "feeding"
	CategoryHealth   Category = "health"
	CategoryGrooming Category = "grooming"
	CategoryActivity Category = "activity"
)

// CategoryInfo is the display metadata of a category.
type CategoryInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

var categories = map[Category]CategoryInfo{
	CategoryFeeding:  {Name: "Feeding", Color: "#ff9f43"},
	CategoryHealth:   {Name: "Health", Color: "#ee5a5a"},
	CategoryGrooming: {Name: "Grooming", Color: "#5f9ea0"},
	CategoryActivity: {Name: "Activity", Color: "#9b59b6"},
}

// Info returns the display metadata for c. Unknown categories get their raw
// name and a neutral color.
func (c Category) Info() CategoryInfo {
	if info, ok := categories[c]; ok {
		return info
	}
	return CategoryInfo{Name: string(c), Color: "#95a5a6"}
}

// Categories returns display metadata for every known category.
func Categories() map[Category]CategoryInfo {
	out := make(map[Category]CategoryInfo, len(categories))
	for k, v := range categories {
		out[k] = v
	}
	return out
}

// Importance ranks how much a missed task hurts.
type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceModerate Importance = "moderate"
)

// Color is the badge color shown next to the task.
func (i Importance) Color() string {
	switch i {
	case ImportanceCritical:
		return "#e74c3c"
	case ImportanceHigh:
		return "#e67e22"
	case ImportanceModerate:
		return "#f1c40f"
	default:
		return "#95a5a6"
	}
}

// Impact describes what happens when a task is skipped.
type Impact struct {
	MissedDescription string `json:"missed"`
	Consequence       string `json:"consequence"`
	// HealthScorePenalty is zero or negative.
	HealthScorePenalty int `json:"healthScore"`
}

// TaskDefinition is an immutable catalog entry.
type TaskDefinition struct {
	ID                  string     `json:"id"`
	Name                string     `json:"name"`
	Glyph               string     `json:"emoji"`
	Category            Category   `json:"category"`
	Importance          Importance `json:"importance"`
	DefaultReminderTime string     `json:"reminderTime"`
	Impact              Impact     `json:"impact"`
}

// Catalog is the ordered, fixed list of recurring tasks.
type Catalog struct {
	tasks []TaskDefinition
	index map[string]int
}

// NewCatalog builds a catalog from defs. Later duplicates of an id are ignored
// and positive penalties are clamped to zero.
func NewCatalog(defs []TaskDefinition) *Catalog {
	c := &Catalog{index: make(map[string]int, len(defs))}
	for _, d := range defs {
		if _, dup := c.index[d.ID]; dup {
			continue
		}
		if d.Impact.HealthScorePenalty > 0 {
			d.Impact.HealthScorePenalty = 0
		}
		c.index[d.ID] = len(c.tasks)
		c.tasks = append(c.tasks, d)
	}
	return c
}

// Tasks returns a copy of the definitions in catalog order.
func (c *Catalog) Tasks() []TaskDefinition {
	out := make([]TaskDefinition, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Len reports the number of tasks.
func (c *Catalog) Len() int { return len(c.tasks) }

// Lookup finds a definition by id.
func (c *Catalog) Lookup(id string) (TaskDefinition, bool) {
	i, ok := c.index[id]
	if !ok {
		return TaskDefinition{}, false
	}
	return c.tasks[i], true
}

// Has reports whether id is part of the catalog.
func (c *Catalog) Has(id string) bool {
	_, ok := c.index[id]
	return ok
}

// position returns the catalog order of id, or -1.
func (c *Catalog) position(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// DefaultCatalog returns Luna's daily routine.
func DefaultCatalog() *Catalog {
	return NewCatalog([]TaskDefinition{
		{
			ID:                  "breakfast",
			Name:                "Breakfast",
			Glyph:               "🍳",
			Category:            CategoryFeeding,
			Importance:          ImportanceCritical,
			DefaultReminderTime: "08:00",
			Impact: Impact{
				MissedDescription:  "Luna will be hungry and may become lethargic. Cats need regular meals to maintain blood sugar levels.",
				Consequence:        "Low energy, potential digestive issues",
				HealthScorePenalty: -15,
			},
		},
		{
			ID:                  "snacks",
			Name:                "Snacks",
			Glyph:               "🐟",
			Category:            CategoryFeeding,
			Importance:          ImportanceModerate,
			DefaultReminderTime: "14:00",
			Impact: Impact{
				MissedDescription:  "Luna may get hungry between meals. Healthy snacks help maintain energy throughout the day.",
				Consequence:        "Slight hunger, may beg for food",
				HealthScorePenalty: -5,
			},
		},
		{
			ID:                  "dinner",
			Name:                "Dinner",
			Glyph:               "🍖",
			Category:            CategoryFeeding,
			Importance:          ImportanceCritical,
			DefaultReminderTime: "18:00",
			Impact: Impact{
				MissedDescription:  "Luna will go to bed hungry. This can cause overnight restlessness and morning nausea.",
				Consequence:        "Hunger, restless sleep, morning vomiting risk",
				HealthScorePenalty: -15,
			},
		},
		{
			ID:                  "omega3",
			Name:                "Omega 3 Supplement",
			Glyph:               "💊",
			Category:            CategoryHealth,
			Importance:          ImportanceModerate,
			DefaultReminderTime: "09:00",
			Impact: Impact{
				MissedDescription:  "One day won't hurt, but consistent misses affect Luna's coat shine, joint health, and cognitive function.",
				Consequence:        "Long-term: dull coat, joint stiffness",
				HealthScorePenalty: -8,
			},
		},
		{
			ID:                  "brush-hair",
			Name:                "Brush Hair",
			Glyph:               "✨",
			Category:            CategoryGrooming,
			Importance:          ImportanceModerate,
			DefaultReminderTime: "10:00",
			Impact: Impact{
				MissedDescription:  "Luna may develop mats and hairballs. Regular brushing prevents hairball vomiting and keeps her coat healthy.",
				Consequence:        "Hairballs, matted fur, skin irritation",
				HealthScorePenalty: -7,
			},
		},
		{
			ID:                  "brush-teeth",
			Name:                "Brush Teeth",
			Glyph:               "🦷",
			Category:            CategoryGrooming,
			Importance:          ImportanceHigh,
			DefaultReminderTime: "20:00",
			Impact: Impact{
				MissedDescription:  "Plaque builds up daily. Dental disease is painful and can lead to serious infections affecting heart and kidneys.",
				Consequence:        "Bad breath, gum disease, tooth decay",
				HealthScorePenalty: -10,
			},
		},
		{
			ID:                  "exercise",
			Name:                "Exercise (1 hour)",
			Glyph:               "🏃",
			Category:            CategoryActivity,
			Importance:          ImportanceHigh,
			DefaultReminderTime: "16:00",
			Impact: Impact{
				MissedDescription:  "Luna needs physical and mental stimulation. Lack of exercise leads to weight gain, boredom, and behavioral issues.",
				Consequence:        "Weight gain, anxiety, destructive behavior",
				HealthScorePenalty: -12,
			},
		},
	})
}
