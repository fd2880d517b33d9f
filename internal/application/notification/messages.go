package notification

import (
	"fmt"

	"github.com/jhoicas/kardex-api/internal/domain/entity"
)

func expiringKind(k entity.LotKind) entity.NotificationKind {
	if k == entity.LotKindSupply {
		return entity.NotificationSupplyExpiring
	}
	return entity.NotificationReagentExpiring
}

func issuedKind(k entity.LotKind) entity.NotificationKind {
	if k == entity.LotKindSupply {
		return entity.NotificationSupplyIssued
	}
	return entity.NotificationReagentIssued
}

// subject arma el sujeto del mensaje: producto y proveedor según el tipo de lote.
func subject(lot *entity.Lot) string {
	if lot.Kind == entity.LotKindSupply {
		return fmt.Sprintf("El insumo %q del laboratorio %q", lot.ProductName, lot.VendorName)
	}
	return fmt.Sprintf("El reactivo %q de la casa comercial %q", lot.ProductName, lot.VendorName)
}

func expiringSoonMessage(lot *entity.Lot) string {
	return fmt.Sprintf("%s vencerá en %d días.", subject(lot), expiryWarningDays)
}

func expiresTodayMessage(lot *entity.Lot) string {
	return fmt.Sprintf("⚠️ %s vence HOY.", subject(lot))
}

func issuedMessage(lot *entity.Lot) string {
	return fmt.Sprintf("%s ha sido dado de salida.", subject(lot))
}
