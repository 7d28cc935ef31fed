package dian

import (
	"fmt"
	"unicode"
)

// pesos para el cálculo del dígito de verificación NIT (Orden Administrativa 4 de 1989, DIAN).
// Se aplican de derecha a izquierda: el último dígito del NIT usa 3, el penúltimo 7, etc.
// Para un NIT de 9 dígitos equivale a la secuencia 41, 37, 29, 23, 19, 17, 13, 7, 3.
var nitWeights = [15]int{3, 7, 13, 17, 19, 23, 29, 37, 41, 43, 47, 53, 59, 67, 71}

// MaxNITDigits longitud máxima del NIT sin dígito de verificación soportada por el algoritmo.
const MaxNITDigits = len(nitWeights)

// ValidateNITVerificationDigit valida que el NIT (con o sin puntos/guiones) tenga
// un dígito de verificación correcto según el algoritmo módulo 11 de la DIAN.
// taxID puede ser "900123456-8", "900.123.456-8" o "9001234568".
func ValidateNITVerificationDigit(taxID string) error {
	digits := ExtractDigits(taxID)
	if len(digits) < 2 {
		return fmt.Errorf("dian: NIT debe tener base y dígito de verificación, se encontraron %d dígitos", len(digits))
	}
	base, dv := digits[:len(digits)-1], digits[len(digits)-1]
	expected, err := ComputeNITVerificationDigit(base)
	if err != nil {
		return err
	}
	if dv != expected {
		return fmt.Errorf("dian: dígito de verificación del NIT inválido: esperado %c, recibido %c", expected, dv)
	}
	return nil
}

// ComputeNITVerificationDigit calcula el dígito de verificación para la base del NIT
// (solo dígitos, sin DV). Acepta bases de 1 a 15 dígitos.
func ComputeNITVerificationDigit(base string) (byte, error) {
	digits := ExtractDigits(base)
	if len(digits) == 0 {
		return 0, fmt.Errorf("dian: NIT vacío")
	}
	if len(digits) > MaxNITDigits {
		return 0, fmt.Errorf("dian: NIT de %d dígitos excede el máximo de %d", len(digits), MaxNITDigits)
	}
	var sum int
	for i := 0; i < len(digits); i++ {
		d := digits[len(digits)-1-i]
		sum += int(d-'0') * nitWeights[i]
	}
	remainder := sum % 11
	if remainder == 0 || remainder == 1 {
		return byte('0' + remainder), nil
	}
	return byte('0' + (11 - remainder)), nil
}

// ExtractDigits devuelve solo los dígitos ASCII de s.
func ExtractDigits(s string) string {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r < 128 && unicode.IsDigit(r) {
			out = append(out, byte(r))
		}
	}
	return string(out)
}
