package merchant

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/clientpulse/pkg/errors"
)

// Product is one catalog entry, flattened from the API's custom_attributes.
// CategoryID holds the product's first assigned category; BrandID holds the
// raw brand option value.
type Product struct {
	SKU        string
	Name       string
	Price      float64
	CategoryID string
	BrandID    string
	URLKey     string
	Image      string
	CreatedAt  time.Time
	CrossSells int
	UpSells    int
}

type productDTO struct {
	ID               int64            `json:"id"`
	SKU              string           `json:"sku"`
	Name             string           `json:"name"`
	Price            float64          `json:"price"`
	CreatedAt        string           `json:"created_at"`
	CustomAttributes []attributeDTO   `json:"custom_attributes"`
	ProductLinks     []productLinkDTO `json:"product_links"`
}

type productLinkDTO struct {
	LinkType string `json:"link_type"`
}

// attributeDTO tolerates the API's loose value typing: strings, numbers,
// and arrays all appear depending on the attribute.
type attributeDTO struct {
	AttributeCode string          `json:"attribute_code"`
	Value         json.RawMessage `json:"value"`
}

type categoryDTO struct {
	ID           int64         `json:"id"`
	Name         string        `json:"name"`
	ChildrenData []categoryDTO `json:"children_data"`
}

type attributeOptionDTO struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FetchCatalog pages through every product and returns them keyed by SKU.
func (c *Client) FetchCatalog(ctx context.Context) (map[string]Product, error) {
	catalog := make(map[string]Product)
	err := c.paginate(ctx, "/products", nil, "products", func(raw json.RawMessage) error {
		var dto productDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product")
		}
		product := dto.toProduct()
		if product.SKU != "" {
			catalog[product.SKU] = product
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info(c.logger.WithField(ctx, "count", len(catalog)), "catalog fetched")
	return catalog, nil
}

// FetchCategoryNames walks the category tree and returns id to display name.
func (c *Client) FetchCategoryNames(ctx context.Context) (map[string]string, error) {
	var root categoryDTO
	if err := c.get(ctx, "/categories", nil, &root); err != nil {
		return nil, err
	}

	names := make(map[string]string)
	var walk func(cats []categoryDTO)
	walk = func(cats []categoryDTO) {
		for _, cat := range cats {
			id := strconv.FormatInt(cat.ID, 10)
			name := cat.Name
			if name == "" {
				name = id
			}
			names[id] = name
			walk(cat.ChildrenData)
		}
	}
	walk(root.ChildrenData)

	c.logger.Info(c.logger.WithField(ctx, "count", len(names)), "category names fetched")
	return names, nil
}

// FetchBrandNames returns the brand attribute's option value to label map.
func (c *Client) FetchBrandNames(ctx context.Context) (map[string]string, error) {
	var options []attributeOptionDTO
	if err := c.get(ctx, "/products/attributes/brand/options", nil, &options); err != nil {
		return nil, err
	}

	names := make(map[string]string, len(options))
	for _, opt := range options {
		value := strings.TrimSpace(opt.Value)
		if value == "" || opt.Label == "" {
			continue
		}
		names[value] = opt.Label
	}

	c.logger.Info(c.logger.WithField(ctx, "count", len(names)), "brand names fetched")
	return names, nil
}

// FetchProductsCreatedBetween returns products whose created_at falls within
// [from, to], inclusive. Used by the monthly new-product report.
func (c *Client) FetchProductsCreatedBetween(ctx context.Context, from, to time.Time) ([]Product, error) {
	filters := []filterSpec{
		{field: "created_at", value: from.Format(apiTimeLayout), condition: "gteq"},
		{field: "created_at", value: to.Format(apiTimeLayout), condition: "lteq"},
	}

	var products []Product
	err := c.paginate(ctx, "/products", filters, "new products", func(raw json.RawMessage) error {
		var dto productDTO
		if err := json.Unmarshal(raw, &dto); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode product")
		}
		products = append(products, dto.toProduct())
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info(c.logger.WithField(ctx, "count", len(products)), "products by date range fetched")
	return products, nil
}

func (d productDTO) toProduct() Product {
	createdAt, _ := time.Parse(apiTimeLayout, d.CreatedAt)
	product := Product{
		SKU:       d.SKU,
		Name:      d.Name,
		Price:     d.Price,
		CreatedAt: createdAt,
	}

	for _, link := range d.ProductLinks {
		switch link.LinkType {
		case "crosssell":
			product.CrossSells++
		case "upsell":
			product.UpSells++
		}
	}

	for _, attr := range d.CustomAttributes {
		switch attr.AttributeCode {
		case "category_ids":
			product.CategoryID = firstCategoryID(attr.Value)
		case "brand":
			product.BrandID = scalarString(attr.Value)
		case "url_key":
			product.URLKey = scalarString(attr.Value)
		case "image":
			product.Image = scalarString(attr.Value)
		}
	}
	return product
}

// firstCategoryID extracts the first id from a category_ids value, which the
// API serves either as an array or as a comma-joined string.
func firstCategoryID(raw json.RawMessage) string {
	var list []any
	if err := json.Unmarshal(raw, &list); err == nil {
		for _, entry := range list {
			if id := anyToString(entry); id != "" {
				return id
			}
		}
		return ""
	}

	joined := scalarString(raw)
	for _, part := range strings.Split(joined, ",") {
		if id := strings.TrimSpace(part); id != "" {
			return id
		}
	}
	return ""
}

func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return ""
	}
	return anyToString(value)
}

func anyToString(value any) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	default:
		return ""
	}
}
