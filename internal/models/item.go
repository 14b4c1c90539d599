// models содержит доменные сущности клиента поиска по маркетплейсу.
// Эти типы используются оркестратором, HTTP-клиентом и слоем отображения.
package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ItemStatus — статус объявления у источника.
type ItemStatus string

const (
	StatusOngoing  ItemStatus = "Ongoing"
	StatusClosed   ItemStatus = "Closed"
	StatusReserved ItemStatus = "Reserved"
)

// Available — объявление можно купить: статус пустой или Ongoing.
func (s ItemStatus) Available() bool {
	return s == "" || s == StatusOngoing
}

// Price — цена объявления в том виде, в каком её отдаёт бэкенд.
//
// Особенности:
//   - бэкенд присылает число, строку или null;
//   - Null == true для null/отсутствующего значения;
//   - для числа заполняются Number и IsNumber, Raw хранит исходный литерал.
type Price struct {
	Raw      string
	Number   float64
	IsNumber bool
	Null     bool
}

// NumberPrice — хелпер для числовой цены.
func NumberPrice(v float64) Price {
	return Price{Raw: strconv.FormatFloat(v, 'f', -1, 64), Number: v, IsNumber: true}
}

// TextPrice — хелпер для строковой цены.
func TextPrice(s string) Price {
	return Price{Raw: s}
}

func (p *Price) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = Price{Null: true}
		return nil
	}

	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*p = Price{Raw: s}
		return nil
	}

	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}

	*p = Price{Raw: string(b), Number: f, IsNumber: true}
	return nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	switch {
	case p.Null:
		return []byte("null"), nil
	case p.IsNumber:
		return json.Marshal(p.Number)
	default:
		return json.Marshal(p.Raw)
	}
}

// IsFree — "отдам даром": null, пустая строка или ноль.
func (p Price) IsFree() bool {
	if p.Null {
		return true
	}
	if p.IsNumber {
		return p.Number == 0
	}

	s := strings.TrimSpace(p.Raw)
	return s == "" || s == "0" || s == "0.0"
}

// ResultItem — одно объявление в выдаче.
// Ключ уникальности — Link; после любого слияния двух элементов с одинаковым
// Link в списке нет.
type ResultItem struct {
	Link            string     `json:"link"`
	Title           string     `json:"title"`
	Price           Price      `json:"price"`
	Location        string     `json:"location,omitempty"`
	Sido            string     `json:"sido,omitempty"`
	Content         string     `json:"content,omitempty"`
	Thumbnail       string     `json:"thumbnail,omitempty"`
	CreatedAtOrigin string     `json:"created_at_origin,omitempty"`
	BoostedAt       string     `json:"boosted_at,omitempty"`
	Nickname        string     `json:"nickname,omitempty"`
	Status          ItemStatus `json:"status,omitempty"`
	Category        string     `json:"category,omitempty"`
	CategoryID      *int       `json:"category_id,omitempty"`
	IsNew           *bool      `json:"is_new,omitempty"`
	// SearchID — часть бэкендов кладёт идентификатор поиска прямо в элемент.
	SearchID string `json:"search_id,omitempty"`
}

// IsReposted — объявление "поднято": BoostedAt позже CreatedAtOrigin.
func (i ResultItem) IsReposted() bool {
	created, ok := ParseTime(i.CreatedAtOrigin)
	if !ok {
		return false
	}

	boosted, ok := ParseTime(i.BoostedAt)
	if !ok {
		return false
	}

	return boosted.After(created)
}
