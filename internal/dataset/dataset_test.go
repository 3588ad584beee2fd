package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innovatis-mc/emendas-cli/internal/model"
)

func opps() []model.Opportunity {
	return []model.Opportunity{
		{IdentificacaoEmenda: "a", Ano: 2023, Autor: "Állan", DotacaoAtual: 300},
		{IdentificacaoEmenda: "b", Ano: 2025, Autor: "bruna", DotacaoAtual: 100},
		{IdentificacaoEmenda: "c", Ano: 2024, Autor: "Carlos", DotacaoAtual: 200},
	}
}

func ids(ds []model.Opportunity) []string {
	out := make([]string, len(ds))
	for i, o := range ds {
		out[i] = o.IdentificacaoEmenda
	}
	return out
}

func TestSort_Numeric(t *testing.T) {
	assert.Equal(t, []string{"a", "c", "b"}, ids(Sort(opps(), FieldAno, Asc)))
	assert.Equal(t, []string{"b", "c", "a"}, ids(Sort(opps(), FieldAno, Desc)))
	assert.Equal(t, []string{"a", "c", "b"}, ids(Sort(opps(), FieldDotacaoAtual, Desc)))
}

func TestSort_LocaleAwareStrings(t *testing.T) {
	// Accented and lowercase names interleave: Állan < bruna < Carlos under
	// pt-BR collation, which byte comparison would not produce.
	assert.Equal(t, []string{"a", "b", "c"}, ids(Sort(opps(), FieldAutor, Asc)))
}

func TestSort_MissingValuesSortLow(t *testing.T) {
	ds := append(opps(), model.Opportunity{IdentificacaoEmenda: "d"})
	got := Sort(ds, FieldAutor, Asc)
	assert.Equal(t, "d", got[0].IdentificacaoEmenda)

	got = Sort(ds, FieldDotacaoAtual, Asc)
	assert.Equal(t, "d", got[0].IdentificacaoEmenda)
}

func TestSort_StableOnEqualKeys(t *testing.T) {
	ds := []model.Opportunity{
		{IdentificacaoEmenda: "x", Ano: 2024},
		{IdentificacaoEmenda: "y", Ano: 2024},
		{IdentificacaoEmenda: "z", Ano: 2024},
	}
	assert.Equal(t, []string{"x", "y", "z"}, ids(Sort(ds, FieldAno, Asc)))
	assert.Equal(t, []string{"x", "y", "z"}, ids(Sort(ds, FieldAno, Desc)))
}

func TestSort_UnknownFieldFallsBackToYear(t *testing.T) {
	assert.Equal(t, ids(Sort(opps(), FieldAno, Asc)), ids(Sort(opps(), "bogus", Asc)))
}

func TestSort_DoesNotMutateInput(t *testing.T) {
	ds := opps()
	Sort(ds, FieldDotacaoAtual, Desc)
	assert.Equal(t, []string{"a", "b", "c"}, ids(ds))
}

func TestPaginate(t *testing.T) {
	ds := []int{0, 1, 2, 3, 4, 5, 6}

	assert.Equal(t, []int{0, 1, 2}, Paginate(ds, 0, 3))
	assert.Equal(t, []int{3, 4, 5}, Paginate(ds, 1, 3))
	assert.Equal(t, []int{6}, Paginate(ds, 2, 3))

	// Out-of-range pages clamp.
	assert.Equal(t, []int{6}, Paginate(ds, 99, 3))
	assert.Equal(t, []int{0, 1, 2}, Paginate(ds, -1, 3))

	assert.Empty(t, Paginate([]int{}, 0, 3))
	assert.Equal(t, ds, Paginate(ds, 0, 0))
}

func TestPaginate_UnionReconstructsSequence(t *testing.T) {
	ds := make([]int, 53)
	for i := range ds {
		ds[i] = i
	}
	size := CardPageSize

	var union []int
	for p := 0; p < PageCount(len(ds), size); p++ {
		union = append(union, Paginate(ds, p, size)...)
	}
	require.Equal(t, ds, union)
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 0, PageCount(0, 10))
	assert.Equal(t, 1, PageCount(10, 10))
	assert.Equal(t, 2, PageCount(11, 10))
	assert.Equal(t, 6, PageCount(53, TablePageSize))
}
