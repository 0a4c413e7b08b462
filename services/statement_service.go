package services

import (
	"fmt"
	"time"

	"github.com/beevik/etree"

	"transactionsProject/models"
)

// StatementService формирует XML-выписку по транзакциям пользователя
type StatementService struct{}

func NewStatementService() *StatementService {
	return &StatementService{}
}

// BuildStatement строит XML-документ выписки
func (s *StatementService) BuildStatement(user *models.User, transactions []models.Transaction) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	statement := doc.CreateElement("statement")
	statement.CreateAttr("generated_at", time.Now().UTC().Format(time.RFC3339))

	owner := statement.CreateElement("user")
	owner.CreateAttr("id", fmt.Sprintf("%d", user.ID))
	owner.CreateAttr("email", user.Email)
	owner.CreateAttr("first_name", user.FirstName)
	owner.CreateAttr("last_name", user.LastName)

	list := statement.CreateElement("transactions")
	list.CreateAttr("count", fmt.Sprintf("%d", len(transactions)))

	var income, outcome float64
	for _, t := range transactions {
		entry := list.CreateElement("transaction")
		entry.CreateAttr("id", fmt.Sprintf("%d", t.ID))
		entry.CreateAttr("date", t.Date.Format(DateLayout))
		entry.CreateAttr("amount", fmt.Sprintf("%.2f", t.Amount))

		if t.Amount > 0 {
			income += t.Amount
		} else {
			outcome += t.Amount
		}
	}

	totals := statement.CreateElement("totals")
	totals.CreateAttr("income", fmt.Sprintf("%.2f", income))
	totals.CreateAttr("outcome", fmt.Sprintf("%.2f", outcome))

	doc.Indent(2)
	return doc.WriteToBytes()
}
