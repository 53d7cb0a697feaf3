package tables

import "github.com/JonMunkholm/dbadmin/internal/core"

// ShopEmailDomains are the mail domains accepted for shop users.
var ShopEmailDomains = []string{"gmail.com", "mail.ru", "inbox.ru"}

func init() {
	core.RegisterPreset("shop", registerShop)
}

// registerShop installs the rules of the online shop schema:
// Пользователи, Заказы, Продукты, Категории, Сотрудники, Поставщики.
func registerShop(r *core.Registry) {
	r.Register("Пользователи", "Имя", core.Required{Message: "name is required"})
	r.Register("Пользователи", "Email", core.Email{
		Domains: ShopEmailDomains,
		Message: "invalid email format; allowed domains: gmail.com, mail.ru, inbox.ru",
	})
	r.Register("Пользователи", "Пароль", core.Hash{Algorithm: core.HashSHA256})

	r.Register("Заказы", "Пользователь_id", core.ForeignKey{Binding: core.ForeignKeyBinding{
		RefTable:    "Пользователи",
		KeyColumn:   "id",
		LabelColumn: "Имя",
	}})
	r.Register("Заказы", "Дата", core.Date{Layout: core.DefaultDateLayout})
	r.Register("Заказы", "Сумма", core.Numeric{Message: "amount must be numeric"})

	r.Register("Продукты", "Название", core.Required{Message: "name is required"})
	r.Register("Продукты", "Цена", core.Numeric{Message: "price must be numeric"})

	r.Register("Категории", "Название", core.Required{Message: "name is required"})

	r.Register("Сотрудники", "Имя", core.Required{Message: "name is required"})

	r.Register("Поставщики", "Название", core.Required{Message: "name is required"})
	r.Register("Поставщики", "Телефон", phone(11))
}
