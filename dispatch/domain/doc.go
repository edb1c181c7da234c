// Package domain define contratos e tipos de domínio do despacho para provedores LLM.
//
// Este pacote não depende de net/http nem de implementações concretas.
// A intenção é permitir testes de unidade puros e desacoplar as regras de
// retry/fallback dos detalhes de cada provedor.
package domain
