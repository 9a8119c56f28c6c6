package rules

import (
	"encoding/json"
	"errors"
	"strings"
)

var errMissingValue = errors.New("missing valor")

// weekdayCondition: {"tipo":"DIA_SEMANA","dias":["MON","SAT"]}
func weekdayCondition(ec EvalContext, raw json.RawMessage) (bool, error) {
	var c struct {
		Dias []string `json:"dias"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return false, err
	}
	today := strings.ToUpper(ec.Now.Weekday().String()[:3])
	for _, d := range c.Dias {
		if strings.ToUpper(strings.TrimSpace(d)) == today {
			return true, nil
		}
	}
	return false, nil
}

// minimumValueCondition: {"tipo":"VALOR_MINIMO","valor":50}
func minimumValueCondition(ec EvalContext, raw json.RawMessage) (bool, error) {
	var c struct {
		Valor *float64 `json:"valor"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return false, err
	}
	if c.Valor == nil {
		return false, errMissingValue
	}
	if ec.Order == nil || ec.Prices == nil {
		return false, nil
	}
	subtotal, err := orderSubtotal(ec)
	if err != nil {
		return false, err
	}
	return subtotal >= *c.Valor, nil
}

func orderSubtotal(ec EvalContext) (float64, error) {
	var subtotal float64
	for _, it := range ec.Order.Items {
		p, err := ec.Prices.GetProductPrice(ec.Ctx, ec.TenantID, it.ProductName)
		if err != nil {
			return 0, err
		}
		subtotal += p * float64(it.Quantity)
	}
	return subtotal, nil
}

// comboCondition: {"tipo":"COMBO_PRODUTOS","produtos":["Pizza","Coca"]}
func comboCondition(ec EvalContext, raw json.RawMessage) (bool, error) {
	var c struct {
		Produtos []string `json:"produtos"`
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return false, err
	}
	if len(c.Produtos) == 0 || ec.Order == nil {
		return false, nil
	}
	have := make(map[string]bool, len(ec.Order.Items))
	for _, it := range ec.Order.Items {
		have[strings.ToLower(strings.TrimSpace(it.ProductName))] = true
	}
	for _, p := range c.Produtos {
		if !have[strings.ToLower(strings.TrimSpace(p))] {
			return false, nil
		}
	}
	return true, nil
}

type valueAction struct {
	Valor *float64 `json:"valor"`
}

func (v *valueAction) parse(raw json.RawMessage) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return err
	}
	if v.Valor == nil {
		return errMissingValue
	}
	return nil
}

// percentDiscount: {"tipo":"DESCONTO_PERCENTUAL","valor":10}
func percentDiscount(price float64, raw json.RawMessage) (float64, error) {
	var a valueAction
	if err := a.parse(raw); err != nil {
		return price, err
	}
	return price * (1 - *a.Valor/100), nil
}

// fixedDiscount: {"tipo":"DESCONTO_FIXO","valor":5}
func fixedDiscount(price float64, raw json.RawMessage) (float64, error) {
	var a valueAction
	if err := a.parse(raw); err != nil {
		return price, err
	}
	return max(price-*a.Valor, 0), nil
}
