package upstream

import (
	"github.com/tryfix/errors"
)

// Category selects one of the upstream number feeds.
type Category string

const (
	Primes    Category = `p`
	Fibonacci Category = `f`
	Even      Category = `e`
	Random    Category = `r`
)

var ErrInvalidCategory = errors.New(`invalid number type`)

var paths = map[Category]string{
	Primes:    `/primes`,
	Fibonacci: `/fibo`,
	Even:      `/even`,
	Random:    `/rand`,
}

func Categories() []Category {
	return []Category{Primes, Fibonacci, Even, Random}
}

func ParseCategory(id string) (Category, error) {
	c := Category(id)
	if _, ok := paths[c]; !ok {
		return ``, errors.WithPrevious(ErrInvalidCategory, `[`+id+`]`)
	}

	return c, nil
}

// Path returns the upstream path of the feed, empty for unknown categories.
func (c Category) Path() string {
	return paths[c]
}

func (c Category) String() string {
	return string(c)
}
