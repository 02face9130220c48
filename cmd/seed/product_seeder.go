package main

import (
	"fmt"
	"log"
	"strings"

	"shop-assistant-be/internal/model"
	"shop-assistant-be/pkg/embedding"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedProducts populates the catalog with a representative set of
// electrical material. Upserts on SKU so reruns are safe.
func SeedProducts(db *gorm.DB) error {
	products := []model.Product{
		{
			SKU: "SCH-A9R60240", Name: "Interruptor diferencial Schneider iID 2P 40A 30mA clase AC",
			Brand: "schneider", Category: "diferencial",
			Description: "Interruptor diferencial instantaneo iID de 2 polos, 40A, sensibilidad 30mA, clase AC, para proteccion de personas en instalaciones domesticas.",
			Price:       68.90, Stock: 42,
			Attributes: datatypes.JSONMap{"current": "40A", "sensitivity": "30mA", "poles": "2P", "class": "AC"},
		},
		{
			SKU: "SCH-A9R81425", Name: "Diferencial superinmunizado Schneider iID 4P 25A 30mA clase A-SI",
			Brand: "schneider", Category: "diferencial",
			Description: "Diferencial superinmunizado de 4 polos contra disparos intempestivos, 25A, 30mA, recomendado para lineas con electronica sensible.",
			Price:       189.50, Stock: 11,
			Attributes: datatypes.JSONMap{"current": "25A", "sensitivity": "30mA", "poles": "4P", "class": "A-SI"},
		},
		{
			SKU: "ABB-F202AC40", Name: "Diferencial ABB F202 AC 2P 40A 30mA",
			Brand: "abb", Category: "diferencial",
			Description: "Interruptor diferencial ABB serie F200, 2 polos, 40A, sensibilidad 30mA, clase AC.",
			Price:       54.20, Stock: 27,
			Attributes: datatypes.JSONMap{"current": "40A", "sensitivity": "30mA", "poles": "2P", "class": "AC"},
		},
		{
			SKU: "LEG-411650", Name: "Diferencial Legrand DX3 2P 40A 300mA selectivo",
			Brand: "legrand", Category: "diferencial",
			Description: "Diferencial selectivo DX3 de cabecera, 2 polos, 40A, sensibilidad 300mA, retardado para coordinacion con diferenciales aguas abajo.",
			Price:       97.10, Stock: 8,
			Attributes: datatypes.JSONMap{"current": "40A", "sensitivity": "300mA", "poles": "2P", "class": "AC"},
		},
		{
			SKU: "SCH-A9F79216", Name: "Magnetotermico Schneider iC60N 2P 16A curva C",
			Brand: "schneider", Category: "magnetotermico",
			Description: "Interruptor automatico magnetotermico iC60N, 2 polos, 16A, curva C, poder de corte 6kA, para circuitos de tomas de corriente.",
			Price:       23.75, Stock: 120,
			Attributes: datatypes.JSONMap{"current": "16A", "poles": "2P", "curve": "C", "breaking": "6kA"},
		},
		{
			SKU: "SCH-A9F79210", Name: "Magnetotermico Schneider iC60N 2P 10A curva C",
			Brand: "schneider", Category: "magnetotermico",
			Description: "Interruptor automatico iC60N, 2 polos, 10A, curva C, para circuitos de alumbrado.",
			Price:       21.40, Stock: 95,
			Attributes: datatypes.JSONMap{"current": "10A", "poles": "2P", "curve": "C", "breaking": "6kA"},
		},
		{
			SKU: "ABB-S202C25", Name: "Magnetotermico ABB S200 2P 25A curva C",
			Brand: "abb", Category: "magnetotermico",
			Description: "Interruptor automatico ABB S200, 2 polos, 25A, curva C, 6kA.",
			Price:       26.90, Stock: 63,
			Attributes: datatypes.JSONMap{"current": "25A", "poles": "2P", "curve": "C", "breaking": "6kA"},
		},
		{
			SKU: "LEG-403578", Name: "Magnetotermico Legrand DX3 4P 32A curva D",
			Brand: "legrand", Category: "magnetotermico",
			Description: "Automatico DX3 de 4 polos, 32A, curva D para arranques con alta corriente de insercion, motores y transformadores.",
			Price:       84.60, Stock: 14,
			Attributes: datatypes.JSONMap{"current": "32A", "poles": "4P", "curve": "D", "breaking": "10kA"},
		},
		{
			SKU: "HAG-MBN116", Name: "Magnetotermico Hager MBN 1P+N 16A curva B",
			Brand: "hager", Category: "magnetotermico",
			Description: "Interruptor automatico Hager serie MBN, 1 polo mas neutro, 16A, curva B, 6kA.",
			Price:       14.95, Stock: 200,
			Attributes: datatypes.JSONMap{"current": "16A", "poles": "1P+N", "curve": "B", "breaking": "6kA"},
		},
		{
			SKU: "CHI-NB1-63C20", Name: "Magnetotermico Chint NB1-63 2P 20A curva C",
			Brand: "chint", Category: "magnetotermico",
			Description: "Automatico Chint NB1-63, 2 polos, 20A, curva C, opcion economica para cuadros secundarios.",
			Price:       9.80, Stock: 340,
			Attributes: datatypes.JSONMap{"current": "20A", "poles": "2P", "curve": "C", "breaking": "6kA"},
		},
		{
			SKU: "PRY-H07VK-25-AZ", Name: "Cable flexible H07V-K 2.5mm2 azul (rollo 100m)",
			Brand: "prysmian", Category: "cable",
			Description: "Cable unipolar flexible H07V-K de 2.5mm2, aislamiento PVC, color azul para neutro, rollo de 100 metros, 750V.",
			Price:       38.50, Stock: 56,
			Attributes: datatypes.JSONMap{"section": "2.5mm", "voltage": "750V", "color": "azul"},
		},
		{
			SKU: "PRY-H07VK-15-MA", Name: "Cable flexible H07V-K 1.5mm2 marron (rollo 100m)",
			Brand: "prysmian", Category: "cable",
			Description: "Cable unipolar flexible H07V-K de 1.5mm2 para circuitos de alumbrado, color marron, rollo de 100 metros.",
			Price:       24.90, Stock: 72,
			Attributes: datatypes.JSONMap{"section": "1.5mm", "voltage": "750V", "color": "marron"},
		},
		{
			SKU: "GC-RZ1K-3G6", Name: "Manguera RZ1-K (AS) 3G6mm2 libre de halogenos",
			Brand: "general-cable", Category: "cable",
			Description: "Manguera de cobre RZ1-K (AS) 0.6/1kV de 3 conductores de 6mm2, libre de halogenos, apta para instalaciones de enlace.",
			Price:       5.45, Stock: 400,
			Attributes: datatypes.JSONMap{"section": "6mm", "voltage": "1000V", "conductors": "3"},
		},
		{
			SKU: "PHI-LED-A60-9W", Name: "Bombilla LED Philips A60 9W E27 luz calida",
			Brand: "philips", Category: "lampara",
			Description: "Bombilla LED estandar A60, casquillo E27, 9W equivalente a 60W, 2700K luz calida, 806 lumenes.",
			Price:       3.20, Stock: 510,
			Attributes: datatypes.JSONMap{"power": "9W", "socket": "E27", "temperature": "2700K"},
		},
		{
			SKU: "PHI-CORELINE-36W", Name: "Pantalla estanca LED Philips CoreLine 36W IP65 120cm",
			Brand: "philips", Category: "lampara",
			Description: "Luminaria estanca LED CoreLine de 120cm, 36W, IP65, para garajes, almacenes y zonas humedas.",
			Price:       42.80, Stock: 33,
			Attributes: datatypes.JSONMap{"power": "36W", "ip": "IP65", "length": "120cm"},
		},
		{
			SKU: "SIM-27101-35", Name: "Interruptor Simon 27 Play blanco",
			Brand: "simon", Category: "mecanismo",
			Description: "Interruptor unipolar de empotrar Simon 27 Play, tecla blanca, 10A 250V.",
			Price:       4.95, Stock: 260,
			Attributes: datatypes.JSONMap{"current": "10A", "voltage": "250V", "color": "blanco"},
		},
		{
			SKU: "JUN-LS990-SW", Name: "Base enchufe schuko Jung LS990 16A",
			Brand: "jung", Category: "mecanismo",
			Description: "Base de enchufe schuko con toma de tierra Jung serie LS990, 16A 250V.",
			Price:       8.70, Stock: 145,
			Attributes: datatypes.JSONMap{"current": "16A", "voltage": "250V"},
		},
		{
			SKU: "BTI-LIVING-K4001", Name: "Interruptor Bticino Living Now 10A antracita",
			Brand: "bticino", Category: "mecanismo",
			Description: "Interruptor unipolar Bticino Living Now, acabado antracita, 10A 250V.",
			Price:       6.40, Stock: 90,
			Attributes: datatypes.JSONMap{"current": "10A", "voltage": "250V", "color": "antracita"},
		},
		{
			SKU: "GEW-GW96104", Name: "Cuadro superficie Gewiss 12 modulos IP40",
			Brand: "gewiss", Category: "envolvente",
			Description: "Cuadro electrico de superficie Gewiss de 12 modulos, puerta transparente, IP40.",
			Price:       18.30, Stock: 48,
			Attributes: datatypes.JSONMap{"modules": "12", "ip": "IP40"},
		},
		{
			SKU: "SIE-5SV3314", Name: "Diferencial Siemens 5SV3 2P 40A 30mA tipo A",
			Brand: "siemens", Category: "diferencial",
			Description: "Interruptor diferencial Siemens 5SV3, 2 polos, 40A, 30mA, tipo A, sensible a corrientes pulsantes.",
			Price:       61.75, Stock: 0,
			Attributes: datatypes.JSONMap{"current": "40A", "sensitivity": "30mA", "poles": "2P", "class": "A"},
		},
	}

	for i := range products {
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "sku"}},
			UpdateAll: true,
		}).Create(&products[i]).Error; err != nil {
			return err
		}
	}

	log.Printf("Seeded %d products", len(products))
	return nil
}

// EmbedProducts builds one embedding document per product from its
// searchable text and stores the vector alongside it.
func EmbedProducts(db *gorm.DB, provider embedding.EmbeddingProvider) error {
	var products []model.Product
	if err := db.Find(&products).Error; err != nil {
		return err
	}

	for _, p := range products {
		document := buildDocument(p)

		res, err := provider.Generate(document, "RETRIEVAL_DOCUMENT")
		if err != nil {
			log.Printf("Warn: embedding failed for %s: %v", p.SKU, err)
			continue
		}

		emb := model.ProductEmbedding{
			Document:       document,
			EmbeddingValue: pgvector.NewVector(res.Embedding.Values),
			ProductId:      p.Id,
		}

		if err := db.Where("product_id = ?", p.Id).Delete(&model.ProductEmbedding{}).Error; err != nil {
			return err
		}
		if err := db.Create(&emb).Error; err != nil {
			return err
		}
	}

	return nil
}

func buildDocument(p model.Product) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Producto: %s\n", p.Name))
	b.WriteString(fmt.Sprintf("Marca: %s\n", p.Brand))
	b.WriteString(fmt.Sprintf("Categoria: %s\n", p.Category))
	for k, v := range p.Attributes {
		b.WriteString(fmt.Sprintf("%s: %v\n", k, v))
	}
	b.WriteString(p.Description)
	return b.String()
}
