package http

import (
	"embed"
	"html/template"
	"net/http"
	"strconv"

	"github.com/DRSN-tech/food-rating/internal/domain"
	"github.com/DRSN-tech/food-rating/internal/usecase"
	"github.com/DRSN-tech/food-rating/pkg/logger"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

type fieldView struct {
	ID      string
	Product int
	Label   string
	Unit    string
	Min     string
	Max     string
	Step    string
	Value   string
}

type productView struct {
	Number int
	Fields []fieldView
}

type ratingView struct {
	Number int
	Rating string
	Best   bool
}

type resultView struct {
	Ratings []ratingView
	Best    int
	Text    string
}

type pageView struct {
	Products []productView
	Result   *resultView
	Error    string
}

// PageHandler отдаёт HTML-форму сравнения трёх продуктов.
type PageHandler struct {
	ratingUsecase usecase.RatingUC
	logger        logger.Logger
}

func NewPageHandler(ratingUsecase usecase.RatingUC, logger logger.Logger) *PageHandler {
	return &PageHandler{ratingUsecase: ratingUsecase, logger: logger}
}

// index — GET /
func (p *PageHandler) index(w http.ResponseWriter, _ *http.Request) {
	defaults := p.ratingUsecase.Defaults()
	p.render(w, http.StatusOK, &pageView{Products: productViews(defaults.Specs, defaults.Products[:])})
}

// submit — POST /. Форма перерисовывается с введёнными значениями и результатом.
func (p *PageHandler) submit(w http.ResponseWriter, r *http.Request) {
	specs := p.ratingUsecase.Defaults().Specs

	products, err := parseProductsForm(r)
	if err != nil {
		code, msg := ToHTTPResponse(err)
		defaults := p.ratingUsecase.Defaults()
		p.render(w, code, &pageView{Products: productViews(specs, defaults.Products[:]), Error: msg})
		return
	}

	view := &pageView{Products: productViews(specs, products)}

	res, err := p.ratingUsecase.Compare(r.Context(), usecase.NewCompareReq(products))
	if err != nil {
		p.logger.Errorf(err, "compare from form failed")
		code, msg := ToHTTPResponse(err)
		view.Error = msg
		p.render(w, code, view)
		return
	}

	view.Result = toResultView(res.Comparison)
	p.render(w, http.StatusOK, view)
}

func (p *PageHandler) render(w http.ResponseWriter, status int, view *pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := indexTemplate.Execute(w, view); err != nil {
		p.logger.Errorf(err, "render index page")
	}
}

func productViews(specs []domain.FeatureSpec, products []domain.FeatureVector) []productView {
	views := make([]productView, 0, len(products))
	for i, product := range products {
		values := product.Array()
		fields := make([]fieldView, 0, len(specs))
		for j, spec := range specs {
			fields = append(fields, fieldView{
				ID:      formFieldName(i+1, spec.Name),
				Product: i + 1,
				Label:   spec.Label,
				Unit:    spec.Unit,
				Min:     formatNumber(spec.Min),
				Max:     formatNumber(spec.Max),
				Step:    formatNumber(spec.Step),
				Value:   formatNumber(values[j]),
			})
		}
		views = append(views, productView{Number: i + 1, Fields: fields})
	}
	return views
}

func toResultView(c *domain.Comparison) *resultView {
	ratings := make([]ratingView, 0, len(c.Products))
	for _, p := range c.Products {
		ratings = append(ratings, ratingView{
			Number: p.Number,
			Rating: domain.FormatRating(p.Rounded),
			Best:   p.Number == c.Best,
		})
	}

	return &resultView{
		Ratings: ratings,
		Best:    c.Best,
		Text:    c.Recommendation,
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
