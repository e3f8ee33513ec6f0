package notionsync

import (
	"time"

	"github.com/dvloznov/mpesa-ledger/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the Notion transactions database.
const (
	PropCode        = "Code"
	PropDescription = "Description"
	PropDate        = "Date"
	PropAmount      = "Amount"
	PropDirection   = "Direction"
	PropCategory    = "Category"
	PropSubCategory = "Sub Category"
	PropPhone       = "Phone"
	PropIncome      = "Income"
	PropOwner       = "Owner"
)

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// TransactionProperties converts a transaction to Notion page properties.
// The external code is the page title and the sync key.
func TransactionProperties(tx domain.Transaction) notionapi.Properties {
	occurred := notionapi.Date(tx.OccurredAt)
	props := notionapi.Properties{
		PropCode: notionapi.TitleProperty{
			Title: richText(tx.ExternalCode),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &occurred},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		PropDirection: notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Direction.Name()},
		},
		PropIncome: notionapi.CheckboxProperty{
			Checkbox: tx.IsIncome(),
		},
	}

	if tx.RawDescription != "" {
		props[PropDescription] = notionapi.RichTextProperty{RichText: richText(tx.RawDescription)}
	}
	if tx.Category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}}
	}
	if tx.SubCategory != "" {
		props[PropSubCategory] = notionapi.RichTextProperty{RichText: richText(tx.SubCategory)}
	}
	if tx.CounterpartyPhone != "" {
		props[PropPhone] = notionapi.PhoneNumberProperty{PhoneNumber: "+" + tx.CounterpartyPhone}
	}
	if tx.OwnerID != "" {
		props[PropOwner] = notionapi.RichTextProperty{RichText: richText(tx.OwnerID)}
	}
	return props
}

// categoryProperties is the partial update sent when only the category changed.
func categoryProperties(tx domain.Transaction) notionapi.Properties {
	props := notionapi.Properties{
		PropCategory:    notionapi.SelectProperty{Select: notionapi.Option{Name: tx.Category}},
		PropSubCategory: notionapi.RichTextProperty{RichText: richText(tx.SubCategory)},
	}
	if tx.Category == "" {
		delete(props, PropCategory)
	}
	return props
}

// pageCode reads the external code from the page title.
func pageCode(page notionapi.Page) string {
	if prop, ok := page.Properties[PropCode]; ok {
		if title, ok := prop.(*notionapi.TitleProperty); ok && len(title.Title) > 0 {
			return title.Title[0].PlainText
		}
	}
	return ""
}

// pageCategory reads the Category select, or "" when unset.
func pageCategory(page notionapi.Page) string {
	if prop, ok := page.Properties[PropCategory]; ok {
		if sel, ok := prop.(*notionapi.SelectProperty); ok {
			return sel.Select.Name
		}
	}
	return ""
}

// pageDate reads the Date property.
func pageDate(page notionapi.Page) (time.Time, bool) {
	if prop, ok := page.Properties[PropDate]; ok {
		if d, ok := prop.(*notionapi.DateProperty); ok && d.Date != nil && d.Date.Start != nil {
			return time.Time(*d.Date.Start), true
		}
	}
	return time.Time{}, false
}

// pageOwner reads the Owner property.
func pageOwner(page notionapi.Page) string {
	if prop, ok := page.Properties[PropOwner]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
