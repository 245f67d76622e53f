package pagination

// DefaultPageSize используется, когда размер страницы не задан.
const DefaultPageSize = 20

// MaxPageSize ограничивает размер страницы, запрошенный клиентом.
const MaxPageSize = 200

// Request — номер страницы (с 1) и её размер из запроса.
// Нулевые и отрицательные значения заменяются значениями по умолчанию.
type Request struct {
	Page int
	Size int
}

func (r Request) normalize() Request {
	if r.Size <= 0 {
		r.Size = DefaultPageSize
	}
	if r.Size > MaxPageSize {
		r.Size = MaxPageSize
	}
	if r.Page <= 0 {
		r.Page = 1
	}
	return r
}

// Window возвращает полуинтервал [start, end) для total элементов.
// Пригоден и без самих элементов, когда известен только total.
func (r Request) Window(total int) (start, end int) {
	r = r.normalize()
	start = (r.Page - 1) * r.Size
	if start > total {
		start = total
	}
	end = start + r.Size
	if end > total {
		end = total
	}
	return start, end
}

// Page — одна страница элементов с метаданными для ответа.
type Page[T any] struct {
	Items   []T
	Page    int
	Size    int
	Total   int
	HasNext bool
}

// Paginate вырезает страницу из уже загруженного списка.
func Paginate[T any](items []T, req Request) Page[T] {
	req = req.normalize()
	start, end := req.Window(len(items))
	return Page[T]{
		Items:   items[start:end],
		Page:    req.Page,
		Size:    req.Size,
		Total:   len(items),
		HasNext: end < len(items),
	}
}

// Map переводит элементы страницы, сохраняя метаданные.
func Map[T, U any](p Page[T], f func(T) U) Page[U] {
	out := make([]U, len(p.Items))
	for i, it := range p.Items {
		out[i] = f(it)
	}
	return Page[U]{Items: out, Page: p.Page, Size: p.Size, Total: p.Total, HasNext: p.HasNext}
}
