// Package paginator нарезает упорядоченные списки на страницы фиксированного размера.
package paginator

import "strconv"

// PerPage — количество элементов на странице.
const PerPage = 10

// Page описывает одно окно списка. Number начинается с 1.
type Page struct {
	Number      int
	NumPages    int
	HasNext     bool
	HasPrevious bool
	Offset      int
	Limit       int
	Total       int
}

// Get выбирает страницу по сырому значению параметра page.
// Отсутствующее или нечисловое значение даёт первую страницу,
// значение вне диапазона (в том числе меньше 1) даёт последнюю.
// Пустой список состоит из одной пустой страницы.
func Get(rawPage string, total int) Page {
	if total < 0 {
		total = 0
	}
	numPages := (total + PerPage - 1) / PerPage
	if numPages == 0 {
		numPages = 1
	}

	number, err := strconv.Atoi(rawPage)
	switch {
	case err != nil:
		number = 1
	case number < 1 || number > numPages:
		number = numPages
	}

	offset := (number - 1) * PerPage
	limit := min(PerPage, total-offset)
	if limit < 0 {
		limit = 0
	}
	return Page{
		Number:      number,
		NumPages:    numPages,
		HasNext:     number < numPages,
		HasPrevious: number > 1,
		Offset:      offset,
		Limit:       limit,
		Total:       total,
	}
}

// Paginate применяет Get к срезу в памяти и возвращает элементы страницы.
func Paginate[T any](items []T, rawPage string) ([]T, Page) {
	p := Get(rawPage, len(items))
	return items[p.Offset : p.Offset+p.Limit], p
}

func (p Page) NextNumber() int     { return p.Number + 1 }
func (p Page) PreviousNumber() int { return p.Number - 1 }

// Numbers возвращает номера всех страниц для навигации в шаблоне.
func (p Page) Numbers() []int {
	n := make([]int, p.NumPages)
	for i := range n {
		n[i] = i + 1
	}
	return n
}
