package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/DRSN-tech/food-rating/pkg/e"
	"gopkg.in/yaml.v3"
)

// Форматы файлов артефактов
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// FormatFromName определяет формат артефакта по расширению файла или ключа объекта.
func FormatFromName(name string) (string, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %s", e.ErrArtifactFormat, name)
	}
}

// DecodeScaler разбирает артефакт скейлера.
func DecodeScaler(data []byte, format string) (*ScalerArtifact, error) {
	var a ScalerArtifact
	if err := decode(data, format, &a); err != nil {
		return nil, e.Wrap("decode scaler", err)
	}
	return &a, nil
}

// DecodeModel разбирает артефакт модели.
func DecodeModel(data []byte, format string) (*ModelArtifact, error) {
	var a ModelArtifact
	if err := decode(data, format, &a); err != nil {
		return nil, e.Wrap("decode model", err)
	}
	return &a, nil
}

// decode строго разбирает артефакт: неизвестные поля считаются ошибкой.
func decode(data []byte, format string, out any) error {
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		return dec.Decode(out)
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		return dec.Decode(out)
	default:
		return fmt.Errorf("%w: %q", e.ErrArtifactFormat, format)
	}
}
