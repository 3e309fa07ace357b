package domain

import "math"

// FeatureCount — число признаков одного продукта.
const FeatureCount = 11

// FeatureSpec описывает один признак продукта и его допустимый диапазон.
type FeatureSpec struct {
	Name    string
	Label   string
	Unit    string
	Min     float64
	Max     float64
	Step    float64
	Default float64
	Integer bool
}

// featureSpecs — порядок совпадает с порядком признаков при обучении модели.
var featureSpecs = [FeatureCount]FeatureSpec{
	{Name: "calories", Label: "Calories", Unit: "", Min: 200, Max: 300, Step: 1, Default: 250, Integer: true},
	{Name: "fats", Label: "Fats", Unit: "g", Min: 1, Max: 10, Step: 0.01, Default: 5},
	{Name: "proteins", Label: "Proteins", Unit: "g", Min: 2, Max: 20, Step: 0.01, Default: 10},
	{Name: "carbs", Label: "Carbs", Unit: "g", Min: 10, Max: 70, Step: 0.01, Default: 40},
	{Name: "temperature", Label: "Temperature", Unit: "°C", Min: 0, Max: 50, Step: 0.01, Default: 25},
	{Name: "humidity", Label: "Humidity", Unit: "%", Min: 10, Max: 90, Step: 0.01, Default: 50},
	{Name: "shelf_life", Label: "Shelf Life", Unit: "days", Min: 1, Max: 10, Step: 1, Default: 5, Integer: true},
	{Name: "cost", Label: "Cost", Unit: "₹", Min: 30, Max: 60, Step: 0.01, Default: 45},
	{Name: "sustainability_factor", Label: "Sustainability Factor", Unit: "", Min: 0, Max: 10, Step: 0.01, Default: 5},
	{Name: "potassium", Label: "Potassium", Unit: "mg", Min: 100, Max: 200, Step: 1, Default: 150, Integer: true},
	{Name: "sodium", Label: "Sodium", Unit: "mg", Min: 400, Max: 600, Step: 1, Default: 500, Integer: true},
}

// FeatureSpecs возвращает копию описаний признаков в порядке модели.
func FeatureSpecs() []FeatureSpec {
	specs := make([]FeatureSpec, FeatureCount)
	copy(specs, featureSpecs[:])
	return specs
}

// Clamp приводит значение к диапазону признака. Целочисленные признаки округляются, NaN заменяется значением по умолчанию.
func (s FeatureSpec) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return s.Default
	}
	if s.Integer {
		v = math.Round(v)
	}
	return math.Min(math.Max(v, s.Min), s.Max)
}

// FeatureVector — признаки одного продукта.
type FeatureVector struct {
	Calories             float64 `json:"calories"`
	Fats                 float64 `json:"fats"`
	Proteins             float64 `json:"proteins"`
	Carbs                float64 `json:"carbs"`
	Temperature          float64 `json:"temperature"`
	Humidity             float64 `json:"humidity"`
	ShelfLife            float64 `json:"shelf_life"`
	Cost                 float64 `json:"cost"`
	SustainabilityFactor float64 `json:"sustainability_factor"`
	Potassium            float64 `json:"potassium"`
	Sodium               float64 `json:"sodium"`
}

// DefaultFeatureVector возвращает вектор со значениями по умолчанию.
func DefaultFeatureVector() FeatureVector {
	var values [FeatureCount]float64
	for i, spec := range featureSpecs {
		values[i] = spec.Default
	}
	return FeatureVectorFromValues(values)
}

// FeatureVectorFromValues собирает вектор из упорядоченного массива значений.
func FeatureVectorFromValues(v [FeatureCount]float64) FeatureVector {
	return FeatureVector{
		Calories:             v[0],
		Fats:                 v[1],
		Proteins:             v[2],
		Carbs:                v[3],
		Temperature:          v[4],
		Humidity:             v[5],
		ShelfLife:            v[6],
		Cost:                 v[7],
		SustainabilityFactor: v[8],
		Potassium:            v[9],
		Sodium:               v[10],
	}
}

// Array возвращает значения в порядке модели.
func (f FeatureVector) Array() [FeatureCount]float64 {
	return [FeatureCount]float64{
		f.Calories,
		f.Fats,
		f.Proteins,
		f.Carbs,
		f.Temperature,
		f.Humidity,
		f.ShelfLife,
		f.Cost,
		f.SustainabilityFactor,
		f.Potassium,
		f.Sodium,
	}
}

// Values возвращает значения в порядке модели в виде слайса.
func (f FeatureVector) Values() []float64 {
	arr := f.Array()
	return arr[:]
}

// Clamp возвращает копию вектора, все значения которой лежат в допустимых диапазонах.
func (f FeatureVector) Clamp() FeatureVector {
	values := f.Array()
	for i, spec := range featureSpecs {
		values[i] = spec.Clamp(values[i])
	}
	return FeatureVectorFromValues(values)
}
