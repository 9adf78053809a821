package catalog

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func fallbackFabrics() []Fabric {
	return []Fabric{
		{ID: "boucle-marfil", Name: "Bouclé Marfil", ColorHex: "#EFE8DC", Description: "Bouclé de rizo cerrado, tacto suave."},
		{ID: "chenille-grafito", Name: "Chenille Grafito", ColorHex: "#4A4A4F", Description: "Chenille de alto tráfico, resistente a mascotas."},
		{ID: "lino-arena", Name: "Lino Arena", ColorHex: "#D8C7A6", Description: "Mezcla de lino y algodón con acabado mate."},
		{ID: "terciopelo-esmeralda", Name: "Terciopelo Esmeralda", ColorHex: "#1F5F4A"},
	}
}

func fallbackProviders() []Provider {
	return []Provider{
		{
			ID:            "prov-bajio",
			Name:          "Maderas del Bajío",
			ContactName:   "Lucía Herrera",
			Email:         "ventas@maderasdelbajio.mx",
			Phone:         "+52 477 555 0142",
			LeadTimeWeeks: intPtr(3),
			Notes:         "Especialistas en roble y nogal macizo.",
			Rating:        floatPtr(4.6),
		},
		{
			ID:            "prov-norte",
			Name:          "Tapicería del Norte",
			ContactName:   "Andrés Garza",
			Email:         "pedidos@tapiceriadelnorte.mx",
			Phone:         "+52 81 5555 0199",
			LeadTimeWeeks: intPtr(5),
			Rating:        floatPtr(4.2),
		},
		{
			ID:          "prov-occidente",
			Name:        "Muebles de Occidente",
			ContactName: "Mariana Robles",
			Email:       "contacto@mueblesdeoccidente.mx",
			Notes:       "Entregas consolidadas cada quincena.",
		},
	}
}

func fallbackProducts() []Product {
	return []Product{
		{
			ID:           "prod-sofa-milan",
			Slug:         "sofa-milan-3-plazas",
			Name:         "Sofá Milán 3 plazas",
			Category:     "Salas",
			Subtype:      "Sofá",
			Description:  "Sofá de tres plazas con cojines de pluma y patas de nogal.",
			PriceList:    34999,
			IsExhibition: true,
			ImageURL:     "/images/sofa-milan.jpg",
			Fabrics:      []string{"lino-arena", "terciopelo-esmeralda"},
			Tags:         []string{"best-seller"},
			Inventory:    &Inventory{OnHand: 2, Incoming: intPtr(4), LeadTimeWeeks: intPtr(5)},
			ProviderID:   "prov-norte",
		},
		{
			ID:           "prod-loveseat-lisboa",
			Slug:         "love-seat-lisboa",
			Name:         "Love seat Lisboa",
			Category:     "Salas",
			Subtype:      "Love seat",
			Description:  "Love seat compacto ideal para departamentos.",
			PriceList:    21999,
			ImageURL:     "/images/loveseat-lisboa.jpg",
			Fabrics:      []string{"lino-arena"},
			Tags:         []string{},
			Inventory:    &Inventory{OnHand: 5},
			ProviderID:   "prov-norte",
		},
		{
			ID:           "prod-sillon-oslo",
			Slug:         "sillon-oslo",
			Name:         "Sillón Oslo",
			Category:     "Salas",
			Subtype:      "Sillón",
			Description:  "Sillón envolvente de inspiración escandinava.",
			PriceList:    12999,
			IsExhibition: true,
			ImageURL:     "/images/sillon-oslo.jpg",
			Fabrics:      []string{"boucle-marfil"},
			Tags:         []string{"nuevo"},
			ProviderID:   "prov-bajio",
		},
		{
			ID:           "prod-comedor-roble",
			Slug:         "comedor-roble-6-sillas",
			Name:         "Comedor Roble 6 sillas",
			Category:     "Comedores",
			Subtype:      "Mesa",
			Description:  "Mesa de roble macizo con seis sillas a juego.",
			PriceList:    45999,
			ImageURL:     "/images/comedor-roble.jpg",
			Fabrics:      []string{},
			Tags:         []string{"madera-maciza"},
			Inventory:    &Inventory{OnHand: 0, Incoming: intPtr(2), LeadTimeWeeks: intPtr(3), Notes: "Fabricación sobre pedido."},
			ProviderID:   "prov-bajio",
		},
		{
			ID:           "prod-silla-nordica",
			Slug:         "silla-nordica",
			Name:         "Silla Nórdica",
			Category:     "Comedores",
			Subtype:      "Silla",
			Description:  "Silla tapizada con estructura de haya.",
			PriceList:    2899,
			ImageURL:     "/images/silla-nordica.jpg",
			Fabrics:      []string{"boucle-marfil", "chenille-grafito"},
			Tags:         []string{},
			Inventory:    &Inventory{OnHand: 24},
			ProviderID:   "prov-bajio",
		},
		{
			ID:           "prod-cama-aurora",
			Slug:         "cama-king-aurora",
			Name:         "Cama King Aurora",
			Category:     "Recámaras",
			Subtype:      "Cama",
			Description:  "Cabecera capitonada en terciopelo con base de madera.",
			PriceList:    38999,
			IsExhibition: true,
			ImageURL:     "/images/cama-aurora.jpg",
			Fabrics:      []string{"terciopelo-esmeralda"},
			Tags:         []string{},
			ProviderID:   "prov-occidente",
		},
		{
			ID:          "prod-buro-kioto",
			Slug:        "buro-flotante-kioto",
			Name:        "Buró Flotante Kioto",
			Category:    "Recámaras",
			Subtype:     "Buró",
			Description: "Buró de pared con cajón oculto.",
			PriceList:   4599,
			ImageURL:    "/images/buro-kioto.jpg",
			Fabrics:     []string{},
			Tags:        []string{},
			Inventory:   &Inventory{OnHand: 7},
		},
		{
			ID:           "prod-seccional-valencia",
			Slug:         "seccional-valencia",
			Name:         "Seccional Valencia",
			Category:     "Salas",
			Subtype:      "Seccional",
			Description:  "Seccional modular en L con chaise reversible.",
			PriceList:    58999,
			ImageURL:     "/images/seccional-valencia.jpg",
			Fabrics:      []string{"chenille-grafito", "lino-arena"},
			Tags:         []string{"modular"},
			ProviderID:   "prov-occidente",
		},
		{
			ID:           "prod-banca-tulum",
			Slug:         "banca-tulum",
			Name:         "Banca Tulum",
			Category:     "Recibidor",
			Subtype:      "Banca",
			Description:  "Banca de parota con asiento tapizado.",
			PriceList:    6499,
			IsExhibition: true,
			ImageURL:     "/images/banca-tulum.jpg",
			Fabrics:      []string{"boucle-marfil"},
			Tags:         []string{},
		},
		{
			ID:           "prod-mesa-centro-marmol",
			Slug:         "mesa-de-centro-marmol",
			Name:         "Mesa de centro Mármol",
			Category:     "Salas",
			Subtype:      "Mesa de centro",
			Description:  "Cubierta de mármol travertino sobre base metálica.",
			PriceList:    9999,
			ImageURL:     "/images/mesa-centro-marmol.jpg",
			Fabrics:      []string{},
			Tags:         []string{},
			ProviderID:   "prov-occidente",
		},
	}
}
