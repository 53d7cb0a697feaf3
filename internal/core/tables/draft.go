package tables

import "github.com/JonMunkholm/dbadmin/internal/core"

func init() {
	core.RegisterPreset("draft", registerDraft)
}

// registerDraft installs the rules of the military registration schema:
// Граждане, Призывники, Документы, Сотрудники, Отсрочки.
func registerDraft(r *core.Registry) {
	citizen := core.ForeignKey{Binding: core.ForeignKeyBinding{
		RefTable:    "Граждане",
		KeyColumn:   "id",
		LabelColumn: "ФИО",
	}}
	date := core.Date{Layout: core.DefaultDateLayout}

	r.Register("Граждане", "ФИО", core.Required{Message: "full name is required"})
	r.Register("Граждане", "Дата_рождения", date)
	r.Register("Граждане", "Телефон", phone(12))

	r.Register("Призывники", "Гражданин_id", citizen)
	r.Register("Призывники", "Дата_призыва", date)

	r.Register("Документы", "Гражданин_id", citizen)
	r.Register("Документы", "Дата_выдачи", date)

	r.Register("Сотрудники", "ФИО", core.Required{Message: "full name is required"})

	r.Register("Отсрочки", "Гражданин_id", citizen)
	r.Register("Отсрочки", "Дата_выдачи", date)
	r.Register("Отсрочки", "Срок_действия", date)
}
